package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"text/template"
	"time"

	"github.com/aws/jsii-runtime-go"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/qrioso-software/nodefn/internal/assets"
	"github.com/qrioso-software/nodefn/internal/config"
	"github.com/qrioso-software/nodefn/internal/engine"
	"github.com/qrioso-software/nodefn/internal/watch"
)

func main() {
	code := 0
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		code = 1
	}
	jsii.Close()
	os.Exit(code)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nodefn",
		Short:         "nodefn: funciones Node.js -> esbuild -> zip -> AWS Lambda (CDK Go)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			if s.Verbose {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().StringP("config", "c", config.DefaultConfigFile, "Ruta del YAML")
	root.PersistentFlags().BoolP("verbose", "v", false, "Logs de debug")

	root.AddCommand(
		newInitCmd(),
		newValidateCmd(),
		newBuildCmd(),
		newSynthCmd(),
		newDeployCmd(),
		newDiffCmd(),
		newWatchCmd(),
		newDoctorCmd(),
		newCdkAppCmd(),
	)
	return root
}

// loadConfig lee settings + YAML y valida temprano para fallar rápido
func loadConfig(cmd *cobra.Command) (*config.Settings, *config.ServerlessConfig, error) {
	s, err := config.LoadSettings(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(s.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

// ===== nodefn init =====
func newInitCmd() *cobra.Command {
	service := "nodefn-example"
	stage := "dev"
	region := "us-east-1"

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Inicializa un proyecto con nodefn.yml de ejemplo",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			if _, err := os.Stat(s.ConfigPath); err == nil {
				return fmt.Errorf("ya existe %s en el directorio", s.ConfigPath)
			}

			file, err := assets.Templates.ReadFile("templates/nodefn.tmpl.yml")
			if err != nil {
				return fmt.Errorf("error reading template: %w", err)
			}

			t := template.Must(template.New("srv").Parse(string(file)))
			f, err := os.Create(s.ConfigPath)
			if err != nil {
				return err
			}
			defer f.Close()

			data := struct {
				Service string
				Stage   string
				Region  string
			}{service, stage, region}

			if err := t.Execute(f, data); err != nil {
				return err
			}
			log.Infof("✅ Creado %s", s.ConfigPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", service, "Nombre del servicio")
	cmd.Flags().StringVar(&stage, "stage", stage, "Stage (dev|stg|prod)")
	cmd.Flags().StringVar(&region, "region", region, "Región AWS (ej. us-east-1)")
	return cmd
}

// ===== nodefn validate =====
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Valida el archivo de configuración",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log.Infof("✅ %s válido (%d funciones)", cfg.Service, len(cfg.Functions))
			return nil
		},
	}
}

// ===== nodefn build =====
// Empaqueta y genera el zip de cada función sin tocar CDK
func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build [function...]",
		Short: "Bundle + zip de las funciones",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = cfg.FunctionNames()
			}

			for _, name := range names {
				fn, ok := cfg.Functions[name]
				if !ok {
					return fmt.Errorf("function '%s' is not defined in %s", name, cfg.Service)
				}
				builder, err := engine.NewBuilder(cfg, name, engine.Options{})
				if err != nil {
					return err
				}
				artifact, err := builder.Build(engine.EntryPath(cfg, fn), fn.Esbuild)
				if err != nil {
					return fmt.Errorf("building function '%s': %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d bytes\tsha256:%s\n", name, artifact.ArchivePath, artifact.Size, artifact.Digest)
			}
			return nil
		},
	}
}

// ===== nodefn cdkapp (oculto) =====
// Entry point que el CDK CLI invoca vía CDK_APP. Respeta CDK_OUTDIR.
func newCdkAppCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "cdkapp",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return engine.Synth(cfg, s.CDKOutdir)
		},
	}
}

// cdkAppCommand es el valor de CDK_APP para este binario
func cdkAppCommand(cfgPath string) string {
	exe, err := os.Executable()
	if err != nil {
		exe = "nodefn"
	}
	return fmt.Sprintf("%s cdkapp --config %s", exe, cfgPath)
}

func runCdk(cfgPath string, args ...string) error {
	if _, err := exec.LookPath("cdk"); err != nil {
		return fmt.Errorf("cdk CLI no encontrado. Instala con: npm i -g aws-cdk")
	}

	ex := exec.Command("cdk", args...)
	ex.Env = append(os.Environ(), "CDK_APP="+cdkAppCommand(cfgPath))
	ex.Stdout = os.Stdout
	ex.Stderr = os.Stderr

	log.Info("🚀 Ejecutando", "cmd", "cdk", "args", args)
	if err := ex.Run(); err != nil {
		return fmt.Errorf("error en cdk %s: %w", args[0], err)
	}
	return nil
}

// ===== nodefn synth =====
// Genera Cloud Assembly en ./cdk.out SIN escribir cdk.json
func newSynthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "synth",
		Short: "Genera cdk.out (Cloud Assembly)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := runCdk(s.ConfigPath, "synth", "--output", "cdk.out"); err != nil {
				return err
			}
			log.Info("✅ Synth listo en cdk.out/")
			return nil
		},
	}
}

// ===== nodefn deploy =====
func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Despliega usando CDK CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cmdArgs := []string{"deploy"}
			if s.RequireApproval != "" {
				cmdArgs = append(cmdArgs, "--require-approval", s.RequireApproval)
			}
			if s.Profile != "" {
				cmdArgs = append(cmdArgs, "--profile", s.Profile)
			}
			return runCdk(s.ConfigPath, cmdArgs...)
		},
	}
	cmd.Flags().String("profile", "", "AWS profile")
	cmd.Flags().String("require-approval", "", "never|any-change|broadening")
	return cmd
}

// ===== nodefn diff =====
func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Diff con CDK CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmdArgs := []string{"diff"}
			if s.Profile != "" {
				cmdArgs = append(cmdArgs, "--profile", s.Profile)
			}
			return runCdk(s.ConfigPath, cmdArgs...)
		},
	}
	cmd.Flags().String("profile", "", "AWS profile")
	return cmd
}

// ===== nodefn watch =====
func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild automático al cambiar el código",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner, err := watch.NewRunner(cfg, engine.Options{}, debounce)
			if err != nil {
				return err
			}
			err = runner.Start(ctx)
			log.Info("🛑 Shutting down...")
			return err
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Espera antes de reconstruir")
	return cmd
}

// ===== nodefn doctor =====
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Verifica requisitos del entorno",
		Run: func(cmd *cobra.Command, args []string) {
			check := func(bin string) {
				if _, err := exec.LookPath(bin); err != nil {
					log.Errorf("❌ %s no encontrado", bin)
				} else {
					log.Infof("✅ %s OK", bin)
				}
			}
			// jsii necesita node para ejecutar CDK
			check("node")
			check("cdk")

			// prueba credenciales AWS (simple)
			var out bytes.Buffer
			ex := exec.Command("aws", "sts", "get-caller-identity")
			ex.Stdout = &out
			if err := ex.Run(); err != nil {
				log.Error("❌ AWS creds no válidas o AWS CLI no instalado")
			} else {
				log.Infof("✅ AWS creds OK: %s", out.String())
			}
		},
	}
}
