// Command lazyframe runs lazy queries over CSV files.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/JacekPliszka/polars/pkg/engine"
)

// globals are the options shared by every command.
type globals struct {
	configFile string
	logLevel   string
	cfg        engine.Config
}

func (g *globals) register(app *kingpin.Application) {
	g.cfg = engine.DefaultConfig()

	app.Flag("config.file", "YAML file with engine options. Flags override its values.").StringVar(&g.configFile)
	app.Flag("log.level", "Only log messages with the given severity or above.").Default("warn").EnumVar(&g.logLevel, "debug", "info", "warn", "error")
	app.Flag("batch-size", "Number of rows scans read at a time.").IntVar(&g.cfg.BatchSize)
	app.Flag("workers", "Maximum number of goroutines a query runs on.").IntVar(&g.cfg.Workers)
	app.Flag("sum-null-policy", "Result of summing a group without non-null values.").EnumVar(&g.cfg.SumNullPolicy, "zero", "null")
}

// engine builds an engine from the config file, with flags set on the
// command line taking precedence.
func (g *globals) engine(ctx *kingpin.ParseContext) (*engine.Engine, log.Logger, error) {
	logger := newLogger(g.logLevel)

	cfg := g.cfg
	if g.configFile != "" {
		fileCfg, err := engine.LoadConfig(g.configFile)
		if err != nil {
			return nil, nil, err
		}
		overrideFromFlags(ctx, &fileCfg, cfg)
		cfg = fileCfg
	}

	e, err := engine.New(engine.Params{Logger: logger, Config: cfg})
	if err != nil {
		return nil, nil, err
	}
	return e, logger, nil
}

// overrideFromFlags copies the options set on the command line from flags
// into cfg.
func overrideFromFlags(ctx *kingpin.ParseContext, cfg *engine.Config, flags engine.Config) {
	for _, el := range ctx.Elements {
		clause, ok := el.Clause.(*kingpin.FlagClause)
		if !ok {
			continue
		}
		switch clause.Model().Name {
		case "batch-size":
			cfg.BatchSize = flags.BatchSize
		case "workers":
			cfg.Workers = flags.Workers
		case "sum-null-policy":
			cfg.SumNullPolicy = flags.SumNullPolicy
		}
	}
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "info":
		opt = level.AllowInfo()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowWarn()
	}
	return level.NewFilter(logger, opt)
}

func exitWithErr(err error) {
	fmt.Fprintf(os.Stderr, "lazyframe: %v\n", err)
	os.Exit(1)
}

func main() {
	app := kingpin.New("lazyframe", "Run lazy queries over CSV files.")
	app.HelpFlag.Short('h')

	g := &globals{}
	g.register(app)
	addSchemaCommand(app, g)
	addQueryCommand(app, g)

	if _, err := app.Parse(os.Args[1:]); err != nil {
		exitWithErr(err)
	}
}
