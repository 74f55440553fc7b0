package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/phrasebook/pkg/scoring"
)

func (a *app) scoreCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "score <reference> <attempt>",
		Short: "Score an attempt against its reference sentence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s *scoring.Scorer
			switch lang {
			case "":
				s = scoring.New(nil)
			case "ja":
				tok, err := scoring.NewKagomeTokenizer()
				if err != nil {
					return fmt.Errorf("loading japanese tokenizer: %w", err)
				}
				s = scoring.New(tok)
			default:
				return fmt.Errorf("unsupported language %q", lang)
			}

			res, err := s.Score(args[0], args[1])
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", `tokenizer language ("ja" for Japanese)`)
	return cmd
}
