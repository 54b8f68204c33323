package main

import (
	"Extensible-Homework-Helper/internal/api"
	"Extensible-Homework-Helper/internal/model"
	"Extensible-Homework-Helper/internal/render"
	"Extensible-Homework-Helper/internal/router"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ehh",
		Short:        "Homework helper for the jeedu portal",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file (default: config.yaml in ./config, . or ~/.config/ehh)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "console", "log format: console or json")
	root.PersistentFlags().String("cache-dir", "", "directory for downloaded and generated artifacts")

	root.AddCommand(
		listCmd(),
		textCmd(),
		audioCmd(),
		transcribeCmd(),
		answersCmd(),
		generateCmd(),
		startCmd(),
		fillCmd(),
		submitCmd(),
		serveCmd(),
	)
	return root
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Log in and list homework, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.online(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Homework(a.sess.Homework))
			return nil
		},
	}
}

func textCmd() *cobra.Command {
	var download bool
	cmd := &cobra.Command{
		Use:   "text <index>",
		Short: "Print the text of a homework item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, false, func(ctx context.Context, a *app, record *model.HomeworkRecord) error {
				if download {
					path, err := a.svc.DownloadText(ctx, a.sess, record)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), path)
					return nil
				}
				text, err := a.svc.FetchText(ctx, a.sess, record)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&download, "download", false, "save the text to the cache directory instead of printing it")
	return cmd
}

func audioCmd() *cobra.Command {
	var download bool
	cmd := &cobra.Command{
		Use:   "audio <index>",
		Short: "Print the audio URL of a homework item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, false, func(ctx context.Context, a *app, record *model.HomeworkRecord) error {
				if download {
					path, err := a.svc.DownloadAudio(ctx, a.sess, record)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), path)
					return nil
				}
				url, err := a.svc.FetchAudioURL(ctx, a.sess, record)
				if err != nil {
					return err
				}
				if url == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "no audio")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&download, "download", false, "save the audio to the cache directory")
	return cmd
}

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <index>",
		Short: "Transcribe the downloaded audio of a homework item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, true, func(ctx context.Context, a *app, record *model.HomeworkRecord) error {
				path, err := a.svc.Transcribe(ctx, record)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
}

// answersFrom returns the answers of the named upstream source.
func answersFrom(ctx context.Context, a *app, record *model.HomeworkRecord, source string) ([]model.Answer, error) {
	switch source {
	case "detail":
		return a.svc.DetailAnswers(ctx, a.sess, record)
	case "paper":
		return a.svc.PaperAnswers(ctx, a.sess, record)
	case "cache":
		return a.svc.CachedAnswers(ctx, a.sess, record)
	default:
		return nil, fmt.Errorf("unknown answer source %q; use detail, paper or cache", source)
	}
}

func answersCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:       "answers <detail|paper|cache> <index>",
		Short:     "Show the answers of a homework item from an upstream source",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"detail", "paper", "cache"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			return run(cmd, args[1:], false, func(ctx context.Context, a *app, record *model.HomeworkRecord) error {
				answers, err := answersFrom(ctx, a, record, source)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), render.Answers(answers))
				if save {
					path, err := a.svc.SaveAnswerSet(record, source, answers)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "saved", path)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "save the answer set to the cache directory")
	return cmd
}

func generateCmd() *cobra.Command {
	var (
		offline, hasAudio, save bool
	)
	cmd := &cobra.Command{
		Use:   "generate <index>",
		Short: "Draft answers with the configured AI client from the stored text and transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hint *bool
			if cmd.Flags().Changed("has-audio") {
				hint = &hasAudio
			}
			return run(cmd, args, offline, func(ctx context.Context, a *app, record *model.HomeworkRecord) error {
				result, err := a.svc.Generate(ctx, a.sess, record, hint)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), render.Answers(result.Answers))
				if result.PostProcessed > 0 {
					a.logger.Info("post-processed generated answers", zap.Int("count", result.PostProcessed))
				}
				if save {
					path, err := a.svc.SaveAnswerSet(record, "generated", result.Answers)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "saved", path)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "resolve the index against the saved listing without logging in")
	cmd.Flags().BoolVar(&hasAudio, "has-audio", false, "whether the item has a listening part; required with --offline for questions")
	cmd.Flags().BoolVar(&save, "save", true, "save the generated answer set to the cache directory")
	return cmd
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <index>",
		Short: "Start a homework item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, false, func(ctx context.Context, a *app, record *model.HomeworkRecord) error {
				return a.svc.Start(ctx, a.sess, record)
			})
		},
	}
}

func fillCmd() *cobra.Command {
	var (
		answersFile, source string
		rate                float64
	)
	cmd := &cobra.Command{
		Use:   "fill <index>",
		Short: "Write answers into the server-side cache without submitting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (answersFile == "") == (source == "") {
				return fmt.Errorf("exactly one of --answers-file or --source is required")
			}
			var ratep *float64
			if cmd.Flags().Changed("rate") {
				ratep = &rate
			}
			return run(cmd, args, false, func(ctx context.Context, a *app, record *model.HomeworkRecord) error {
				var answers []model.Answer
				if answersFile != "" {
					set, err := a.svc.LoadAnswerSet(answersFile)
					if err != nil {
						return err
					}
					answers = set.Answers
				} else {
					var err error
					if answers, err = answersFrom(ctx, a, record, source); err != nil {
						return err
					}
				}
				result, err := a.svc.FillIn(ctx, a.sess, record, answers, ratep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cached %d answers\n", len(result.Entries))
				if summary := render.FillIn(result.Corruptions, result.Picks); summary != "" {
					fmt.Fprintln(cmd.OutOrStdout(), summary)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&answersFile, "answers-file", "", "answer set JSON file to fill in")
	cmd.Flags().StringVar(&source, "source", "", "upstream answer source to fill in: detail, paper or cache")
	cmd.Flags().Float64Var(&rate, "rate", 1, "target correctness rate in [0, 1]")
	return cmd
}

func submitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <index>",
		Short: "Submit what the server-side cache holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, false, func(ctx context.Context, a *app, record *model.HomeworkRecord) error {
				result, err := a.svc.Submit(ctx, a.sess, record)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "submitted %d answers\n", result.Submitted)
				if result.Archive != "" {
					fmt.Fprintln(cmd.OutOrStdout(), "standard answers saved to", result.Archive)
				}
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			var defaultCred *model.Credentials
			if cred, ok := a.cfg.SelectedCredentials(); ok {
				defaultCred = cred
			}
			h := api.NewHomeworkHandler(a.svc, defaultCred, a.logger)
			r := router.SetupRouter(h, a.cfg.Server.CORSOrigins)

			a.logger.Info("server listening", zap.String("port", a.cfg.Server.Port))
			return r.Run(a.cfg.Server.Port)
		},
	}
}

