package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/garunski/cartridge-fixture/pkg/framework"
	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	"github.com/garunski/cartridge-fixture/pkg/framework/config"
	"github.com/garunski/cartridge-fixture/pkg/framework/service"
)

var (
	cfgFile   string
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "cartfixture",
	Short: "Reset the cartridge repository between test scenarios",
	Long: `cartfixture erases the cartridge versions an end-to-end scenario installed,
restores the manifests they replaced, restarts the node's messaging service and
reloads the cartridge repository.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: ./cartfixture.yaml or /etc/cartfixture/cartfixture.yaml)")
	flags.String("repository-path", "", "cartridge repository directory")
	flags.String("manifest-root", "", "directory holding the live cartridge manifests")
	flags.String("candidates-file", "", "YAML file listing the identities to clean up")
	flags.String("service-name", "", "service restarted after an erase (empty disables the restart)")
	flags.String("service-manager", "", "service, systemctl or kubernetes")
	flags.String("data-path", "", "event log directory")
	flags.String("log-file", "", "rotating log file")

	bindFlag("repository_path", "repository-path")
	bindFlag("manifest_root", "manifest-root")
	bindFlag("candidates_file", "candidates-file")
	bindFlag("service.name", "service-name")
	bindFlag("service.manager", "service-manager")
	bindFlag("data_path", "data-path")
	bindFlag("log.file", "log-file")

	rootCmd.AddCommand(resetCmd, listCmd, serveCmd)
}

func bindFlag(key, flag string) {
	_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
}

func initConfig() {
	viper.SetEnvPrefix("CARTFIXTURE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cartfixture")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/cartfixture")
	}

	// without --config a missing file leaves the defaults in place
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config: %w", err)
		}
	}
}

// loadConfig layers the config file, CARTFIXTURE_* variables and flags over
// the framework defaults.
func loadConfig() (framework.Config, error) {
	if configErr != nil {
		return framework.Config{}, configErr
	}

	b := config.NewBuilder().WithAppVersion(version)

	if v := viper.GetString("repository_path"); v != "" {
		b.WithRepositoryPath(v)
	}
	if v := viper.GetString("manifest_root"); v != "" {
		b.WithManifestRoot(v)
	}
	if v := viper.GetString("backup_suffix"); v != "" {
		b.WithBackupSuffix(v)
	}
	if v := viper.GetString("tag"); v != "" {
		b.WithTag(v)
	}
	if viper.IsSet("reset_on_start") {
		b.WithResetOnStart(viper.GetBool("reset_on_start"))
	}

	if viper.IsSet("candidates") {
		var candidates []cartridge.Identity
		if err := viper.UnmarshalKey("candidates", &candidates); err != nil {
			return framework.Config{}, fmt.Errorf("decoding candidates: %w", err)
		}
		b.WithCandidates(candidates...)
	}
	if v := viper.GetString("candidates_file"); v != "" {
		b.WithCandidatesFile(v)
	}

	cfg := framework.DefaultConfig()
	if viper.IsSet("service.name") {
		cfg.ServiceName = viper.GetString("service.name")
	}
	if v := viper.GetString("service.manager"); v != "" {
		cfg.ServiceManager = v
	}
	b.WithService(cfg.ServiceName, service.Manager(cfg.ServiceManager))
	if v := viper.GetString("service.namespace"); v != "" {
		b.WithKubeNamespace(v)
	}

	timeout, interval := cfg.ReadyTimeout, cfg.ReadyInterval
	if viper.IsSet("service.ready_timeout") {
		timeout = viper.GetDuration("service.ready_timeout")
	}
	if viper.IsSet("service.ready_interval") {
		interval = viper.GetDuration("service.ready_interval")
	}
	b.WithReadyWait(timeout, interval)

	if v := viper.GetString("data_path"); v != "" {
		b.WithDataPath(v)
	}
	if v := viper.GetString("port"); v != "" {
		b.WithPort(v)
	}
	if v := viper.GetString("log.file"); v != "" {
		b.WithLogFile(v)
	}
	if viper.IsSet("log.retention_days") {
		b.WithLogRetentionDays(viper.GetInt("log.retention_days"))
	}
	if viper.IsSet("log.cleanup_interval") {
		b.WithLogCleanupInterval(viper.GetDuration("log.cleanup_interval"))
	}

	return b.Build()
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
