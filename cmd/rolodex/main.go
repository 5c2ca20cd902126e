package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"

	"github.com/coolbeans/rolodex/pkg/card"
	"github.com/coolbeans/rolodex/pkg/config"
	"github.com/coolbeans/rolodex/pkg/parser"
	"github.com/coolbeans/rolodex/pkg/render"
	"github.com/coolbeans/rolodex/pkg/store"
)

var version = "0.1.0"

var log = logging.Logger("rolodex")

func main() {
	rootCmd := &cobra.Command{
		Use:   "rolodex",
		Short: "vCard parser, validator and address book",
		Long: `Rolodex reads vCard 4.0 (RFC 6350), 3.0 and 2.1 documents.

It can:
  - Normalize cards and rewrite them in any supported version
  - Validate documents strictly or leniently
  - Keep an address book in a SQLite database
  - Render cards through HTML templates`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return cfg.ApplyLogLevel()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file")
	flags.Bool("strict", false, "Reject properties RFC 6350 does not define")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("db", "", "Path to the card database (overrides store.path)")
	flags.String("target-version", "", "vCard version to write: 4.0, 3.0 or 2.1 (overrides writer.version)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(renderCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config (or the defaults) and applies the flag
// overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		cfg.Parser.Strict = true
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.LogLevel = "debug"
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}
	if target, _ := cmd.Flags().GetString("target-version"); target != "" {
		cfg.Writer.Version = target
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readCards parses a file, or stdin when path is "-".
func readCards(cfg *config.Config, path string) ([]*card.Card, error) {
	p := parser.NewParser()
	p.Strict = cfg.Parser.Strict

	if path == "-" {
		return p.ImportReader(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return p.ImportReader(f)
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	return store.Open(ctx, cfg.Store.Path, cfg.StoreOptions())
}

func writeCards(cfg *config.Config, cards []*card.Card, output string) error {
	target, err := cfg.WriterVersion()
	if err != nil {
		return err
	}
	var sb strings.Builder
	for _, c := range cards {
		sb.WriteString(c.Serialize(target))
	}
	if output == "" {
		fmt.Print(sb.String())
		return nil
	}
	if err := os.WriteFile(output, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	fmt.Printf("%d card(s) written to: %s\n", len(cards), output)
	return nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [config-path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "rolodex.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Printf("Configuration written to: %s\n", path)
			return nil
		},
	}
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a vCard file and write it back normalized",
		Long: `Parse every card in FILE ("-" for stdin) and write the cards back in the
target version. Folded lines, legacy encodings and nested AGENT cards are
normalized on the way.

Example:
  rolodex parse contacts.vcf
  rolodex parse --target-version 3.0 --output contacts-30.vcf contacts.vcf
  rolodex parse --fn contacts.vcf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			deriveFN, _ := cmd.Flags().GetBool("fn")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cards, err := readCards(cfg, args[0])
			if err != nil {
				return err
			}
			if deriveFN {
				for _, c := range cards {
					if err := c.SetFNAppropriately(); err != nil {
						return err
					}
				}
			}
			return writeCards(cfg, cards, output)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().Bool("fn", false, "Derive a missing FN from N or ORG")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that a vCard file parses and every card has an FN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cards, err := readCards(cfg, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			failed := 0
			for _, c := range cards {
				if err := c.Validate(); err != nil {
					fmt.Printf("  ✗ %s: %v\n", c.UID(), err)
					failed++
					continue
				}
				fmt.Printf("  ✓ %s\n", c.UID())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d card(s) failed validation", failed, len(cards))
			}
			fmt.Printf("%d card(s) valid\n", len(cards))
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import the cards of a vCard file into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cards, err := readCards(cfg, args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, c := range cards {
				if err := s.Save(ctx, c); err != nil {
					return err
				}
				log.Debugw("imported", "uid", c.UID())
			}
			fmt.Printf("Imported %d card(s) into %s\n", len(cards), cfg.Store.Path)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [UID...]",
		Short: "Export cards from the database",
		Long: `Export the cards with the given UIDs, or every card when none is given.

Example:
  rolodex export --output all.vcf
  rolodex export --target-version 2.1 urn:uuid:f81d4fae-7dec-11d0-a765-00a0c91e6bf6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			uids := args
			if len(uids) == 0 {
				if uids, err = s.UIDs(ctx); err != nil {
					return err
				}
			}
			cards := make([]*card.Card, 0, len(uids))
			for _, uid := range uids {
				c, err := s.Load(ctx, uid)
				if err != nil {
					return err
				}
				cards = append(cards, c)
			}
			return writeCards(cfg, cards, output)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the cards in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			var uids []string
			if kind != "" {
				uids, err = s.UIDsByKind(ctx, strings.ToLower(kind))
			} else {
				uids, err = s.UIDs(ctx)
			}
			if err != nil {
				return err
			}

			fmt.Printf("%-48s %-14s %s\n", "UID", "KIND", "FN")
			fmt.Println(strings.Repeat("-", 80))
			for _, uid := range uids {
				c, err := s.Load(ctx, uid)
				if err != nil {
					return err
				}
				fn := ""
				if p, ok := c.First("fn"); ok {
					fn = p.String()
				}
				fmt.Printf("%-48s %-14s %s\n", truncateString(uid, 48), c.Kind(), fn)
			}
			fmt.Printf("\n%d card(s)\n", len(uids))
			return nil
		},
	}
	cmd.Flags().String("kind", "", "Only list cards of this KIND (individual, group, org, location)")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete UID",
		Short: "Delete a card from the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render the cards of a vCard file through a template",
		Long: `Render every card in FILE through a built-in template or a template file.

Built-in templates:
  - hcard:  microformats2 h-card HTML
  - plain:  one line per property
  - vcard:  the card as vCard 4.0 text inside <pre>

Template files are html/template sources with these functions:
  prop CARD NAME          display text of the first NAME property
  props CARD NAME         NAME properties, most preferred first
  field CARD NAME FIELD   one field of a structured property
  raw CARD                the card as vCard 4.0 text
  display CARD            one line per property

Example:
  rolodex render --template hcard contacts.vcf
  rolodex render --template ./card.html.tmpl contacts.vcf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templateName, _ := cmd.Flags().GetString("template")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cards, err := readCards(cfg, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, builtin := render.Lookup(templateName); builtin {
				for _, c := range cards {
					if err := render.Render(out, templateName, c); err != nil {
						return err
					}
				}
				return nil
			}

			source, err := os.ReadFile(templateName)
			if err != nil {
				return fmt.Errorf("template %q is neither built in (%s) nor a readable file: %w",
					templateName, strings.Join(render.BuiltinNames(), ", "), err)
			}
			for _, c := range cards {
				if err := render.RenderSource(out, templateName, string(source), c); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringP("template", "t", "hcard", "Built-in template name or template file path")
	return cmd
}

func truncateString(inputStr string, maxLength int) string {
	if len(inputStr) <= maxLength {
		return inputStr
	}
	if maxLength <= 3 {
		return inputStr[:maxLength]
	}
	return inputStr[:maxLength-3] + "..."
}
