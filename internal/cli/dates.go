package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"implied-inflation/internal/tesouro"
)

var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "Print the available reference-date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Dates(cmd.Context())
	},
}

// parseDay accepts dd/mm/yyyy, as published by Tesouro, or ISO yyyy-mm-dd.
func parseDay(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := tesouro.ParseDate(v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected dd/mm/yyyy or yyyy-mm-dd, got %q", v)
	}
	return t, nil
}

func optionalDay(flag, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := parseDay(v)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", flag, err)
	}
	return &t, nil
}
