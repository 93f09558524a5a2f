package helpers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AddFormatFlag adds a standard --format/-o flag to a command.
func AddFormatFlag(cmd *cobra.Command, formatVar *string, defaultFormat OutputFormat, supportedFormats []OutputFormat) {
	formatNames := make([]string, len(supportedFormats))
	for i, f := range supportedFormats {
		formatNames[i] = string(f)
	}

	description := fmt.Sprintf("Output format (%s)", strings.Join(formatNames, ", "))
	cmd.Flags().StringVarP(formatVar, "format", "o", string(defaultFormat), description)

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return formatNames, cobra.ShellCompDirectiveNoFileComp
	})
}

// ValidateFormat checks if the format is in the supported list.
func ValidateFormat(format string, supported []OutputFormat) error {
	names := make([]string, len(supported))
	for i, s := range supported {
		if format == string(s) {
			return nil
		}
		names[i] = string(s)
	}

	return fmt.Errorf("unsupported format %q, must be one of: %s", format, strings.Join(names, ", "))
}

// WriteResult validates format and writes data with the matching formatter.
func WriteResult(cmd *cobra.Command, format string, supported []OutputFormat, data interface{}) error {
	if err := ValidateFormat(format, supported); err != nil {
		return err
	}
	formatter, err := NewFormatter(OutputFormat(format))
	if err != nil {
		return err
	}
	return formatter.Format(data, cmd.OutOrStdout())
}
