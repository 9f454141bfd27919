package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigCmd creates the config parent command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the saved server URL",
	}

	cmd.AddCommand(configSetURLCmd())
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configClearCmd())

	return cmd
}

func configSetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <url>",
		Short: "Save the archivesearchd URL used by search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := SaveSettings(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved API URL %s\n", saved.APIURL)
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved server URL and where it came from",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagURL, _ := cmd.Flags().GetString("api-url")
			apiURL, source, err := ResolveAPIURL(flagURL)
			if err != nil {
				return err
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"api_url": apiURL,
					"source":  string(source),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API URL: %s (%s)\n", apiURL, source)
			return nil
		},
	}
}

func configClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the saved server URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := ClearSettings()
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved configuration")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved configuration removed")
			return nil
		},
	}
}
