package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kbmc/portal-api/internal/config"
	"github.com/kbmc/portal-api/pkg/client"
	"github.com/kbmc/portal-api/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "poller",
	Short: "Notification polling client",
	Long:  `Watches a role's notifications on the portal API and marks or deletes them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yml)")
	flags.String("api-url", "", "portal API base URL")
	flags.String("token", "", "bearer token for the API")
	flags.Duration("timeout", 0, "per-request timeout")

	cobra.CheckErr(viper.BindPFlag("polling.api_url", flags.Lookup("api-url")))
	cobra.CheckErr(viper.BindPFlag("polling.request_timeout", flags.Lookup("timeout")))
	cobra.CheckErr(viper.BindPFlag("auth.token", flags.Lookup("token")))
}

func newClient() *client.Client {
	var opts []client.Option
	if token := viper.GetString("auth.token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(cfg.Polling.APIURL, cfg.Polling.RequestTimeout, opts...)
}

func newLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.Kitchen,
		Output:     os.Stderr,
	})
}

func main() {
	Execute()
}
