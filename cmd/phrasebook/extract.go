package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/phrasebook/pkg/extract"
	"github.com/japaniel/phrasebook/pkg/sentences"
)

type candidate struct {
	Sentence string `json:"sentence"`
	Exists   bool   `json:"exists"`
}

func (a *app) extractCmd() *cobra.Command {
	var rawURL string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "List candidate sentences from a web article",
		Long: `Fetch an article, extract its readable text and print one JSON line per
sentence, marking the ones already stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			article, err := extract.New().Fetch(ctx, rawURL)
			if err != nil {
				return err
			}
			a.log.Info("extracted article", "title", article.Title, "sentences", len(article.Sentences))

			driver, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer driver.Close()
			repo := sentences.New(driver, nil, a.log)

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, s := range article.Sentences {
				exists, err := repo.Exists(ctx, s)
				if err != nil {
					return fmt.Errorf("checking %q: %w", s, err)
				}
				if err := enc.Encode(candidate{Sentence: s, Exists: exists}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawURL, "url", "", "article URL")
	cmd.MarkFlagRequired("url")
	return cmd
}
