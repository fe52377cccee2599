package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenlane/catalog-tagger/internal/catalog"
)

var importOut string

var importCmd = &cobra.Command{
	Use:   "import <ftp-url>",
	Short: "Download a catalog export from a supplier FTP drop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fetcher := catalog.NewFTPFetcher(catalog.FTPOptions{
			Username: cfg.FTP.Username,
			Password: cfg.FTP.Password,
			Timeout:  time.Duration(cfg.FTP.TimeoutSecs) * time.Second,
		})

		n, err := fetcher.DownloadToFile(ctx, args[0], importOut)
		if err != nil {
			return err
		}

		zap.L().Info("catalog downloaded",
			zap.String("url", args[0]),
			zap.String("path", importOut),
			zap.Int64("bytes", n),
		)
		fmt.Printf("downloaded %d bytes to %s\n", n, importOut)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importOut, "out", "products.csv", "local path for the downloaded export")
	rootCmd.AddCommand(importCmd)
}
