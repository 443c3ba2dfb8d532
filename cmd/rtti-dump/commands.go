package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/hengadev/rtti"
	"github.com/hengadev/rtti/library"
	promprovider "github.com/hengadev/rtti/providers/prometheus"
	"github.com/hengadev/rtti/resource"
	"github.com/hengadev/rtti/store"
	"github.com/hengadev/rtti/store/s3store"
	"github.com/hengadev/rtti/store/sqlitestore"
)

// common holds the flags every command that decodes data accepts.
type common struct {
	configPath string
	envFile    string
	metrics    bool

	collector *promprovider.Collector
}

func (c *common) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML configuration file (default: RTTI_* environment variables)")
	fs.StringVar(&c.envFile, "env-file", "", "Load RTTI_* variables from this .env file first")
	fs.BoolVar(&c.metrics, "metrics", false, "Print Prometheus metrics to stderr when done")
}

func (c *common) config() (rtti.Config, error) {
	switch {
	case c.configPath != "":
		return rtti.LoadConfigFromFile(c.configPath)
	case c.envFile != "":
		return rtti.LoadConfigFromEnvFile(c.envFile)
	default:
		return rtti.LoadConfigFromEnvironment()
	}
}

// registry knows every type this module defines.
func registry() (*rtti.Registry, error) {
	reg := rtti.NewRegistry()
	if err := library.RegisterTypes(reg); err != nil {
		return nil, err
	}
	if err := resource.RegisterTypes(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (e *env) serializer(c *common) (*rtti.Serializer, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	cfg.LogOutput = e.stderr
	reg, err := registry()
	if err != nil {
		return nil, err
	}

	opts := []rtti.Option{rtti.WithRegistry(reg)}
	if c.metrics {
		c.collector, err = promprovider.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, rtti.WithMetricsCollector(c.collector))
	}
	return rtti.NewFromConfig(cfg, opts...)
}

func (e *env) flushMetrics(c *common) error {
	if c.collector == nil {
		return nil
	}
	if err := c.collector.Flush(); err != nil {
		return err
	}
	return c.collector.WriteText(e.stderr)
}

func (e *env) readInput(path string, envelope bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(e.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if envelope {
		return store.Open(data)
	}
	return data, nil
}

func (e *env) inspectCommand(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	envelope := fs.Bool("envelope", false, "Input is a sealed store blob")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one input file (or - for stdin)")
	}

	data, err := e.readInput(fs.Arg(0), *envelope)
	if err != nil {
		return err
	}
	reg, err := registry()
	if err != nil {
		return err
	}
	info, err := rtti.Inspect(data, reg)
	if err != nil {
		return err
	}
	return info.Print(e.stdout)
}

func (e *env) treeCommand(args []string) error {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	var c common
	c.bind(fs)
	envelope := fs.Bool("envelope", false, "Input is a sealed store blob")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one input file (or - for stdin)")
	}

	data, err := e.readInput(fs.Arg(0), *envelope)
	if err != nil {
		return err
	}
	s, err := e.serializer(&c)
	if err != nil {
		return err
	}
	entries, err := rtti.DeserializeAs[*library.Entries](context.Background(), s, data)
	if err != nil {
		return err
	}
	if err := library.Fprint(e.stdout, entries.Root()); err != nil {
		return err
	}
	return e.flushMetrics(&c)
}

// storeFlags selects a backend.
type storeFlags struct {
	sqlitePath string
	bucket     string
	prefix     string
	retries    int
}

func (sf *storeFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&sf.sqlitePath, "sqlite", "", "SQLite database file")
	fs.StringVar(&sf.bucket, "s3", "", "S3 bucket, credentials from the default AWS chain")
	fs.StringVar(&sf.prefix, "prefix", "", "Key prefix inside the store")
	fs.IntVar(&sf.retries, "retries", 3, "Attempts per S3 call")
}

func (sf *storeFlags) open(ctx context.Context, s *rtti.Serializer) (*store.Store, func(), error) {
	var (
		backend store.Backend
		closer  = func() {}
	)
	switch {
	case sf.sqlitePath != "" && sf.bucket != "":
		return nil, nil, errors.New("-sqlite and -s3 are mutually exclusive")
	case sf.sqlitePath != "":
		b, err := sqlitestore.Open(ctx, sf.sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		backend, closer = b, func() { b.Close() }
	case sf.bucket != "":
		b, err := s3store.NewFromDefaultConfig(ctx, sf.bucket)
		if err != nil {
			return nil, nil, err
		}
		backend = store.NewRetryBackend(b, store.RetryConfig{MaxAttempts: sf.retries})
	default:
		return nil, nil, errors.New("one of -sqlite or -s3 is required")
	}

	st, err := store.New(backend, s, store.WithKeyPrefix(sf.prefix))
	if err != nil {
		closer()
		return nil, nil, err
	}
	return st, closer, nil
}

func (e *env) listCommand(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	var (
		c  common
		sf storeFlags
	)
	c.bind(fs)
	sf.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	s, err := e.serializer(&c)
	if err != nil {
		return err
	}
	st, closer, err := sf.open(ctx, s)
	if err != nil {
		return err
	}
	defer closer()

	ids, err := st.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(e.stdout, id)
	}
	return e.flushMetrics(&c)
}

func (e *env) showCommand(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	var (
		c  common
		sf storeFlags
	)
	c.bind(fs)
	sf.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one object id")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}

	ctx := context.Background()
	s, err := e.serializer(&c)
	if err != nil {
		return err
	}
	st, closer, err := sf.open(ctx, s)
	if err != nil {
		return err
	}
	defer closer()

	obj, err := st.Load(ctx, id, rtti.NoType)
	if err != nil {
		return err
	}
	if entries, ok := obj.(*library.Entries); ok {
		if err := library.Fprint(e.stdout, entries.Root()); err != nil {
			return err
		}
		return e.flushMetrics(&c)
	}

	data, err := s.Serialize(ctx, obj)
	if err != nil {
		return err
	}
	info, err := rtti.Inspect(data, s.Registry())
	if err != nil {
		return err
	}
	if err := info.Print(e.stdout); err != nil {
		return err
	}
	return e.flushMetrics(&c)
}

func (e *env) putCommand(args []string) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	var (
		c  common
		sf storeFlags
	)
	c.bind(fs)
	sf.bind(fs)
	idFlag := fs.String("id", "", "Object id (default: a new random id)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one input file (or - for stdin)")
	}

	id := uuid.New()
	if *idFlag != "" {
		var err error
		if id, err = uuid.Parse(*idFlag); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
	}

	data, err := e.readInput(fs.Arg(0), false)
	if err != nil {
		return err
	}
	ctx := context.Background()
	s, err := e.serializer(&c)
	if err != nil {
		return err
	}
	obj, err := s.Deserialize(ctx, data, rtti.NoType)
	if err != nil {
		return err
	}
	st, closer, err := sf.open(ctx, s)
	if err != nil {
		return err
	}
	defer closer()

	if err := st.Save(ctx, id, obj); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, id)
	return e.flushMetrics(&c)
}

func (e *env) versionCommand() error {
	_, err := fmt.Fprintln(e.stdout, rtti.VersionInfo())
	return err
}
