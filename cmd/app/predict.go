package main

import (
	"encoding/json"
	"fmt"

	"CryptoPredict/internal/di"
	"CryptoPredict/internal/domain/models"
	"CryptoPredict/pkg/config"
	xhttp "CryptoPredict/pkg/http"
	"CryptoPredict/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func predictCmd(configPath *string) *cobra.Command {
	var (
		req     models.PredictRequest
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Print one forecast as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verr := xhttp.ValidateStruct(cmd.Context(), &req); verr != nil {
				b, _ := json.Marshal(verr)
				return fmt.Errorf("invalid arguments: %s", b)
			}

			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}

			level := zerolog.ErrorLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			l := logger.NewWriter(cmd.ErrOrStderr(), level)

			cascade, err := di.InitializeCascade(cfg, l)
			if err != nil {
				return err
			}
			defer cascade.Close()

			f, err := cascade.Predict(cmd.Context(), req.Symbol, req.Days)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(f)
		},
	}
	cmd.Flags().StringVarP(&req.Symbol, "symbol", "s", "BTCUSDT", "trading pair")
	cmd.Flags().IntVarP(&req.Days, "days", "d", 7, "forecast horizon in days (1-365)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every source attempt to stderr")
	return cmd
}
