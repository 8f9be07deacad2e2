// Command ledger-cli is the optional command-line collaborator
// described in spec §6: it inits a ledger, appends canned quanta, runs
// queries and compaction, and exposes the GGGM coordinate-algebra
// operators over ad-hoc coordinates.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"coreledger.dev/engine/internal/config"
	"coreledger.dev/engine/internal/coord"
	"coreledger.dev/engine/internal/engine"
	"coreledger.dev/engine/internal/gggm"
	"coreledger.dev/engine/internal/jiwol"
	"coreledger.dev/engine/internal/quantum"
	"coreledger.dev/engine/internal/uemtree"
)

func main() {
	app := &cli.App{
		Name:  "ledger-cli",
		Usage: "inspect and drive a core ledger engine instance",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "ledger file path", Value: config.DefaultPath},
		},
		Commands: []*cli.Command{
			initCommand(),
			appendCommand(),
			queryCommand(),
			compactCommand(),
			gggmCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func specFor(c *cli.Context) config.Spec {
	s := config.DefaultSpec()
	s.Uem.Ledger.Path = c.String("path")
	return s
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "create the ledger if absent and write its genesis record",
		Action: func(c *cli.Context) error {
			r := engine.NewRegistry()
			handle, err := r.OpenLedger(specFor(c))
			if err != nil {
				return err
			}
			n, err := r.GetRecordsCount(handle)
			if err != nil {
				return err
			}
			slog.Info("ledger initialized", "path", c.String("path"), "record_count", n)
			return nil
		},
	}
}

func appendCommand() *cli.Command {
	return &cli.Command{
		Name:  "append",
		Usage: "append one canned quantum at the given coordinate",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "t", Usage: "logical time"},
			&cli.Uint64Flag{Name: "j", Usage: "project id"},
			&cli.Uint64Flag{Name: "k", Usage: "step id"},
		},
		Action: func(c *cli.Context) error {
			spec := specFor(c)
			r := engine.NewRegistry()
			handle, err := r.OpenLedger(spec)
			if err != nil {
				return err
			}
			q := quantum.UemQuantum{
				Coord: coord.Coord9{T: c.Uint64("t"), J: c.Uint64("j"), K: uint32(c.Uint64("k"))},
			}
			q.ID = jiwol.Encode(spec.JiwolLayout(), q.Coord)
			compacted, err := r.AppendRecord(handle, q.Bytes())
			if err != nil {
				return err
			}
			slog.Info("appended quantum", "t", q.Coord.T, "compacted", compacted)
			return nil
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "list records matching a project/step filter",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "j", Usage: "project id filter"},
			&cli.Uint64Flag{Name: "k", Usage: "step id filter"},
		},
		Action: func(c *cli.Context) error {
			r := engine.NewRegistry()
			handle, err := r.OpenLedger(specFor(c))
			if err != nil {
				return err
			}
			filter := uemtree.QueryFilter{}
			if c.IsSet("j") {
				j := c.Uint64("j")
				filter.J = &j
			}
			if c.IsSet("k") {
				k := uint32(c.Uint64("k"))
				filter.K = &k
			}
			records, err := r.QueryRecords(handle, filter)
			if err != nil {
				return err
			}
			for i, b := range records {
				q, err := quantum.Parse(b)
				if err != nil {
					return err
				}
				fmt.Printf("%d: t=%d j=%d k=%d\n", i, q.Coord.T, q.Coord.J, q.Coord.K)
			}
			return nil
		},
	}
}

func compactCommand() *cli.Command {
	return &cli.Command{
		Name:  "compact",
		Usage: "force an SCD compaction pass",
		Action: func(c *cli.Context) error {
			r := engine.NewRegistry()
			handle, err := r.OpenLedger(specFor(c))
			if err != nil {
				return err
			}
			compacted, err := r.ScdCompactHandle(handle)
			if err != nil {
				return err
			}
			n, err := r.GetRecordsCount(handle)
			if err != nil {
				return err
			}
			slog.Info("compaction pass complete", "compacted", compacted, "record_count", n)
			return nil
		},
	}
}

func gggmCommand() *cli.Command {
	return &cli.Command{
		Name:  "gggm",
		Usage: "evaluate a coordinate-algebra operator over ad-hoc (t, re, im) points",
		Subcommands: []*cli.Command{
			gggmOpCommand("merge", func(a, b gggm.Value) gggm.Value { return a.Merge(b) }),
			gggmOpCommand("parallel", func(a, b gggm.Value) gggm.Value { return a.Parallel(b) }),
			gggmProjectCommand(),
		},
	}
}

func gggmProjectCommand() *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "pin a (t, re, im) point onto a projection layer",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "t1", Required: true},
			&cli.Float64Flag{Name: "re1"},
			&cli.Float64Flag{Name: "im1"},
			&cli.UintFlag{Name: "layer", Usage: "target projection layer (0-255)"},
		},
		Action: func(c *cli.Context) error {
			v := gggm.New(coord.Coord9{T: c.Uint64("t1")}, coord.Complex32{Re: float32(c.Float64("re1")), Im: float32(c.Float64("im1"))})
			result := v.Project(uint8(c.Uint("layer")))
			fmt.Printf("t=%d p=%d thickness=(%v,%v)\n", result.Coord.T, result.Coord.P, result.Thickness.Re, result.Thickness.Im)
			return nil
		},
	}
}

func gggmOpCommand(name string, op func(a, b gggm.Value) gggm.Value) *cli.Command {
	return &cli.Command{
		Name: name,
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "t1", Required: true},
			&cli.Uint64Flag{Name: "t2", Required: true},
			&cli.Float64Flag{Name: "re1"},
			&cli.Float64Flag{Name: "im1"},
			&cli.Float64Flag{Name: "re2"},
			&cli.Float64Flag{Name: "im2"},
		},
		Action: func(c *cli.Context) error {
			a := gggm.New(coord.Coord9{T: c.Uint64("t1")}, coord.Complex32{Re: float32(c.Float64("re1")), Im: float32(c.Float64("im1"))})
			b := gggm.New(coord.Coord9{T: c.Uint64("t2")}, coord.Complex32{Re: float32(c.Float64("re2")), Im: float32(c.Float64("im2"))})
			result := op(a, b)
			fmt.Printf("t=%d thickness=(%v,%v)\n", result.Coord.T, result.Thickness.Re, result.Thickness.Im)
			return nil
		},
	}
}
