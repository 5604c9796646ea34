package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/rhythm-ranker/app"
	"github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth"
	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	rankingservice "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/Black-And-White-Club/rhythm-ranker/config"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "ranker",
		Usage: "operator tooling for the ranking engine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
		},
		Commands: []*cli.Command{
			newRefreshCommand(),
			newScoreCommand(),
			newTopCommand(),
			newResetCommand(),
			newTokenCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

var contextsFlag = &cli.StringFlag{
	Name:  "contexts",
	Usage: "comma separated contexts (default: all)",
}

// withService runs fn against a ranking service built without HTTP or queue.
func withService(c *cli.Context, fn func(ctx context.Context, svc rankingservice.Service) (any, error)) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	application, err := app.NewApp(c.Context, cfg, app.Options{WithoutHTTP: true})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = application.Close(ctx)
	}()

	out, err := fn(c.Context, application.RankingModule.RankingService)
	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			return errors.Join(err, encErr)
		}
	}
	return err
}

func parseContexts(c *cli.Context) ([]rankingdomain.Context, error) {
	if !c.IsSet("contexts") {
		return nil, nil
	}
	return rankingdomain.ParseContexts(c.String("contexts"))
}

func newRefreshCommand() *cli.Command {
	system := authdomain.SystemCapabilities()

	return &cli.Command{
		Name:  "refresh",
		Usage: "recompute rankings",
		Subcommands: []*cli.Command{
			{
				Name:  "all",
				Usage: "re-rank every leaderboard, then players and clans",
				Flags: []cli.Flag{contextsFlag},
				Action: func(c *cli.Context) error {
					contexts, err := parseContexts(c)
					if err != nil {
						return err
					}
					return withService(c, func(ctx context.Context, svc rankingservice.Service) (any, error) {
						reports := map[string]rankingservice.BatchReport{}
						lb, err := svc.RefreshAllLeaderboards(ctx, system, rankingservice.RefreshOptions{Contexts: contexts, SkipClans: true})
						reports["leaderboards"] = lb
						if err != nil || lb.Cancelled {
							return reports, err
						}
						players, err := svc.RefreshAllPlayers(ctx, system, contexts)
						reports["players"] = players
						if err != nil || players.Cancelled {
							return reports, err
						}
						clans, err := svc.RefreshAllClanRankings(ctx, system)
						reports["clans"] = clans
						return reports, err
					})
				},
			},
			{
				Name:      "leaderboard",
				Usage:     "re-rank one leaderboard",
				ArgsUsage: "<leaderboard-id>",
				Flags: []cli.Flag{
					contextsFlag,
					&cli.BoolFlag{Name: "ranks-only", Usage: "recompute ranks without pp"},
				},
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return cli.Exit("leaderboard id is required", 2)
					}
					contexts, err := parseContexts(c)
					if err != nil {
						return err
					}
					return withService(c, func(ctx context.Context, svc rankingservice.Service) (any, error) {
						return svc.RefreshLeaderboard(ctx, system, id, rankingservice.RefreshOptions{
							Contexts:  contexts,
							RanksOnly: c.Bool("ranks-only"),
						})
					})
				},
			},
			{
				Name:      "players",
				Usage:     "recompute player aggregates, or one player's when an id is given",
				ArgsUsage: "[player-id]",
				Flags:     []cli.Flag{contextsFlag},
				Action: func(c *cli.Context) error {
					contexts, err := parseContexts(c)
					if err != nil {
						return err
					}
					return withService(c, func(ctx context.Context, svc rankingservice.Service) (any, error) {
						if id := c.Args().First(); id != "" {
							return svc.RefreshPlayer(ctx, system, id, contexts)
						}
						return svc.RefreshAllPlayers(ctx, system, contexts)
					})
				},
			},
			{
				Name:  "global",
				Usage: "reassign global and country ranks",
				Flags: []cli.Flag{contextsFlag},
				Action: func(c *cli.Context) error {
					contexts, err := parseContexts(c)
					if err != nil {
						return err
					}
					return withService(c, func(ctx context.Context, svc rankingservice.Service) (any, error) {
						return svc.RefreshGlobalRanks(ctx, system, contexts)
					})
				},
			},
			{
				Name:      "clans",
				Usage:     "recompute clan captures for the given leaderboards, or all",
				ArgsUsage: "[leaderboard-id...]",
				Action: func(c *cli.Context) error {
					ids := c.Args().Slice()
					return withService(c, func(ctx context.Context, svc rankingservice.Service) (any, error) {
						if len(ids) == 0 {
							return svc.RefreshAllClanRankings(ctx, system)
						}
						return svc.RefreshClanRankings(ctx, system, ids)
					})
				},
			},
		},
	}
}

func newScoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "score",
		Usage:     "process one submitted score",
		ArgsUsage: "<score-id>",
		Action: func(c *cli.Context) error {
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return cli.Exit("score id must be an integer", 2)
			}
			return withService(c, func(ctx context.Context, svc rankingservice.Service) (any, error) {
				return svc.ProcessScore(ctx, id)
			})
		},
	}
}

func newTopCommand() *cli.Command {
	return &cli.Command{
		Name:      "top",
		Usage:     "print the best players of a context",
		ArgsUsage: "<context>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 50},
		},
		Action: func(c *cli.Context) error {
			rc, err := rankingdomain.ParseContext(c.Args().First())
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc rankingservice.Service) (any, error) {
				return svc.TopPlayers(ctx, authdomain.SystemCapabilities(), rc, c.Int("limit"))
			})
		},
	}
}

func newResetCommand() *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "zero one score column across a context",
		ArgsUsage: "<context> <column>",
		Action: func(c *cli.Context) error {
			rc, err := rankingdomain.ParseContext(c.Args().Get(0))
			if err != nil {
				return err
			}
			column := c.Args().Get(1)
			return withService(c, func(ctx context.Context, svc rankingservice.Service) (any, error) {
				n, err := svc.ResetContextColumn(ctx, authdomain.SystemCapabilities(), rc, column)
				return map[string]int64{"rows": n}, err
			})
		},
	}
}

func newTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a bearer token for the ranking API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Required: true},
			&cli.StringSliceFlag{Name: "role", Value: cli.NewStringSlice(string(authdomain.RoleRankingTeam))},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			authModule, err := auth.NewModule(cfg, app.NewLogger(cfg))
			if err != nil {
				return err
			}
			var roles []authdomain.Role
			for _, r := range c.StringSlice("role") {
				roles = append(roles, authdomain.Role(r))
			}
			token, err := authModule.IssueToken(c.String("subject"), roles, c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
