package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"marketplace-matching/internal/common/config"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/matching"

	"github.com/spf13/cobra"
)

// options holds the flags shared by every subcommand.
type options struct {
	configPath  string
	category    string
	policy      string
	location    bool
	rate        bool
	urgent      bool
	maxDistance float64
	jsonOut     bool
	verbose     bool
	timeout     time.Duration
}

func (o *options) preferences() matching.MatchPreferences {
	prefs := matching.MatchPreferences{
		PrioritizeLocation: o.location,
		PrioritizeRate:     o.rate,
		PrioritizeUrgent:   o.urgent,
	}
	if o.maxDistance > 0 {
		d := o.maxDistance
		prefs.MaxDistanceKm = &d
	}
	return prefs
}

// engine builds the engine for --category from --config, or the built-in
// defaults when no config file is given.
func (o *options) engine() (*matching.Engine, error) {
	ec := matching.DefaultConfig()
	if o.configPath != "" {
		cfg, err := config.LoadFromFile(o.configPath)
		if err != nil {
			return nil, err
		}
		if ec, err = cfg.EngineConfig(strings.ToLower(strings.TrimSpace(o.category))); err != nil {
			return nil, err
		}
	}
	if o.policy != "" {
		policy, err := matching.ParseWeightPolicy(o.policy)
		if err != nil {
			return nil, err
		}
		ec.WeightPolicy = policy
	}

	log := logger.NewNoOpLogger()
	if o.verbose {
		log = logger.NewStructured("debug", "console")
	}
	return matching.NewEngine(ec, log), nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "matchctl",
		Short: "Score and rank marketplace matches offline",
		Long: `matchctl runs the compatibility engine against JSON files of providers
and requesters, without Zeebe or a database.

Preferences are given as flags. With --config the engine settings of the
worker manager are used, including per-category overrides via --category.`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "worker manager config file (YAML)")
	f.StringVar(&opts.category, "category", "", "category whose engine settings apply")
	f.StringVar(&opts.policy, "weight-policy", "", "clamp, renormalize or as_is")
	f.BoolVar(&opts.location, "prioritize-location", false, "favor nearby matches")
	f.BoolVar(&opts.rate, "prioritize-rate", false, "favor matching prices")
	f.BoolVar(&opts.urgent, "prioritize-urgent", false, "favor fast responders")
	f.Float64Var(&opts.maxDistance, "max-distance", 0, "maximum distance in km (0 uses the engine default)")
	f.BoolVar(&opts.jsonOut, "json", false, "print JSON instead of a table")
	f.BoolVar(&opts.verbose, "verbose", false, "log engine diagnostics to stderr")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "abort ranking after this long")

	root.AddCommand(newScoreCmd(opts), newRankCmd(opts), newRegistryCmd())
	return root
}

func newScoreCmd(opts *options) *cobra.Command {
	var requesterPath, providerPath string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one requester against one provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var requester matching.Requester
			if err := readJSON(requesterPath, &requester); err != nil {
				return err
			}
			var provider matching.Provider
			if err := readJSON(providerPath, &provider); err != nil {
				return err
			}
			if err := requester.Validate(); err != nil {
				return err
			}
			if err := provider.Validate(); err != nil {
				return err
			}

			engine, err := opts.engine()
			if err != nil {
				return err
			}
			result := engine.ScoreOne(requester, provider, opts.preferences())

			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeScoreTable(cmd.OutOrStdout(), requester.ID, provider.ID, result)
		},
	}

	cmd.Flags().StringVar(&requesterPath, "requester", "", "requester JSON file")
	cmd.Flags().StringVar(&providerPath, "provider", "", "provider JSON file")
	_ = cmd.MarkFlagRequired("requester")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func newRankCmd(opts *options) *cobra.Command {
	var (
		providerPath, requestersPath string
		requesterPath, providersPath string
		limit                        int
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank many candidates against one counterpart",
		Long: `Rank requesters for one provider (--provider with --requesters) or
providers for one requester (--requester with --providers). Malformed
candidates are reported and skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			switch {
			case providerPath != "" && requestersPath != "" && requesterPath == "" && providersPath == "":
				var provider matching.Provider
				if err := readJSON(providerPath, &provider); err != nil {
					return err
				}
				requesters, err := readCandidates[matching.Requester](requestersPath)
				if err != nil {
					return err
				}
				batch, err := engine.ScoreDecodedRequesters(ctx, provider, requesters, opts.preferences())
				if err != nil {
					return err
				}
				return writeRanking(cmd.OutOrStdout(), opts.jsonOut, matching.TopK(batch, limit), batch.Rejected)

			case requesterPath != "" && providersPath != "" && providerPath == "" && requestersPath == "":
				var requester matching.Requester
				if err := readJSON(requesterPath, &requester); err != nil {
					return err
				}
				providers, err := readCandidates[matching.Provider](providersPath)
				if err != nil {
					return err
				}
				batch, err := engine.ScoreDecodedProviders(ctx, requester, providers, opts.preferences())
				if err != nil {
					return err
				}
				return writeRanking(cmd.OutOrStdout(), opts.jsonOut, matching.TopK(batch, limit), batch.Rejected)

			default:
				return fmt.Errorf("use either --provider with --requesters or --requester with --providers")
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&providerPath, "provider", "", "provider JSON file")
	f.StringVar(&requestersPath, "requesters", "", "JSON array of requesters")
	f.StringVar(&requesterPath, "requester", "", "requester JSON file")
	f.StringVar(&providersPath, "providers", "", "JSON array of providers")
	f.IntVar(&limit, "limit", 0, "show only the top N (0 shows all)")
	return cmd
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// readCandidates reads a JSON array of candidates. Elements that do not
// decode are kept as rejections.
func readCandidates[T matching.Identified](path string) (matching.Decoded[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return matching.Decoded[T]{}, err
	}
	d, err := matching.DecodeCandidates[T](data)
	if err != nil {
		return matching.Decoded[T]{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}
