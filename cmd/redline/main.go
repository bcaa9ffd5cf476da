// Command redline applies a JSON list of edit operations to a DOCX document
// as tracked changes.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "redline",
		Short: "Tracked-change revision of Word documents",
		Long:  "redline applies declarative edit operations (replace, delete, comment, logo substitution) to a DOCX file, recording every change as a tracked revision a reviewer can accept or reject.",
	}

	// Global flags.
	rootCmd.PersistentFlags().String("author", "", "Name revisions are attributed to")
	rootCmd.PersistentFlags().String("date", "", "Revision timestamp (RFC 3339); default is now")
	rootCmd.PersistentFlags().String("model", "", "Bedrock model ID for the grammar classifier")
	rootCmd.PersistentFlags().String("region", "", "AWS region for Bedrock")
	rootCmd.PersistentFlags().String("profile", "", "AWS credential profile")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log each operation")

	// Bind flags to viper.
	viper.BindPFlag("author", rootCmd.PersistentFlags().Lookup("author"))
	viper.BindPFlag("date", rootCmd.PersistentFlags().Lookup("date"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Env vars: REDLINE_MODEL, REDLINE_REGION, etc.
	viper.SetEnvPrefix("REDLINE")
	viper.AutomaticEnv()

	// Config file.
	viper.SetConfigName(".redline")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig() // Ignore error; config file is optional.

	rootCmd.AddCommand(newReviseCmd())
	rootCmd.AddCommand(newResolveCmd("accept", "Accept every tracked change"))
	rootCmd.AddCommand(newResolveCmd("reject", "Reject every tracked change"))
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
