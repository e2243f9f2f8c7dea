package main

import (
	"fmt"
	"io"
	"strconv"

	theme "github.com/goliatone/go-theme"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-jobform/internal/config"
	"github.com/goliatone/go-jobform/internal/logging"
	"github.com/goliatone/go-jobform/internal/server"
	"github.com/goliatone/go-jobform/pkg/catalog"
	"github.com/goliatone/go-jobform/pkg/jobs"
	"github.com/goliatone/go-jobform/pkg/jobs/databricks"
	"github.com/goliatone/go-jobform/pkg/jobs/memory"
	"github.com/goliatone/go-jobform/pkg/orchestrator"
	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/renderers/tui"
	"github.com/goliatone/go-jobform/pkg/renderers/vanilla"
)

// memoryIdentity is the caller the in-process backend reports.
const memoryIdentity = "local"

type app struct {
	stdout io.Writer
	stderr io.Writer

	configFile string
	envFile    string

	cfg    *config.Config
	logger *logrus.Logger

	// Test seams. When set they replace the configured backend and the
	// survey prompt driver.
	backend jobs.Backend
	prompts tui.PromptDriver
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "jobform",
		Short: "Schema-driven parameter forms for remote jobs",
		Long: `jobform loads job parameter schemas from YAML documents, renders a form
for each job, validates what the user enters and triggers exactly one run of
the matching deployed job.`,
		SilenceUsage: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (YAML). Searches jobform.yaml, jobform.yml, .jobform.yaml")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file with DATABRICKS_* credentials (default .env)")
	flags.String("schemas-dir", "", "directory holding the job schema documents")
	flags.String("backend", "", "job backend: databricks or memory")
	flags.String("deployment-target", "", `deployment target used to qualify job names; "-" disables qualification`)
	flags.String("log-level", "", "log level")
	flags.String("log-format", "", "log format: text or json")

	root.AddCommand(
		newServeCmd(a),
		newListCmd(a),
		newValidateCmd(a),
		newRunCmd(a),
		newOpenAPICmd(a),
	)
	return root
}

// setup loads the configuration and logger. Commands that never reach the
// job backend pass needsBackend=false so missing credentials are accepted.
func (a *app) setup(cmd *cobra.Command, needsBackend bool) error {
	opts := []config.Option{config.WithFile(a.configFile), config.WithFlags(cmd.Flags())}
	if a.envFile != "" {
		opts = append(opts, config.WithDotenv(a.envFile))
	}
	if !needsBackend || a.backend != nil {
		opts = append(opts, config.SkipCredentials())
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, a.stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	logger.WithFields(logrus.Fields{"config": cfg.ConfigFileUsed(), "backend": cfg.Backend}).Debug("configuration loaded")
	return nil
}

func (a *app) loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		dir = a.cfg.SchemasDir
	}
	return catalog.LoadDir(dir, catalog.WithLogger(a.logger))
}

func (a *app) qualifier() jobs.Qualifier {
	return jobs.NewTemplateQualifier(a.cfg.QualifierTemplate)
}

func (a *app) newBackend(c *catalog.Catalog) (jobs.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}

	switch a.cfg.Backend {
	case config.BackendMemory:
		return seededMemoryBackend(c, a.qualifier(), a.cfg.DeploymentTarget), nil
	case config.BackendDatabricks:
		db := a.cfg.Databricks
		opts := []databricks.Option{databricks.WithLogger(a.logger)}
		if db.UsesOAuth() {
			opts = append(opts, databricks.WithClientCredentials(db.ClientID, db.ClientSecret))
		} else {
			opts = append(opts, databricks.WithToken(db.Token))
		}
		return databricks.New(db.Host, opts...)
	default:
		return nil, fmt.Errorf("unknown backend %q", a.cfg.Backend)
	}
}

// seededMemoryBackend lists one job per loaded schema, named the way a
// deployment under target would name it.
func seededMemoryBackend(c *catalog.Catalog, q jobs.Qualifier, target string) *memory.Backend {
	target = jobs.NormalizeTarget(target)
	list := make([]jobs.Job, 0, c.Len())
	for i, name := range c.Names() {
		qualified := name
		if target != "" {
			qualified = q.Qualify(name, target, memoryIdentity)
		}
		list = append(list, jobs.Job{ID: strconv.Itoa(i + 1), Name: qualified})
	}
	return memory.New(memoryIdentity, list...)
}

func (a *app) newTUI() (*tui.Renderer, error) {
	return tui.New(tui.WithPromptDriver(a.prompts), tui.WithOutputFormat(tui.OutputFormatPrettyText))
}

func (a *app) newRegistry() (*render.Registry, error) {
	html, err := vanilla.New(
		vanilla.WithStylesheetURL(server.AssetsPath+vanilla.StylesheetName),
		vanilla.WithTemplatesDir(a.cfg.TemplatesDir),
	)
	if err != nil {
		return nil, err
	}
	term, err := a.newTUI()
	if err != nil {
		return nil, err
	}
	return render.NewRegistry(html, term)
}

func (a *app) newOrchestrator(c *catalog.Catalog, backend jobs.Backend, extra ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	registry, err := a.newRegistry()
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithCatalog(c),
		orchestrator.WithRegistry(registry),
		orchestrator.WithDefaultRenderer(a.cfg.Renderer),
		orchestrator.WithTarget(a.cfg.DeploymentTarget),
		orchestrator.WithLogger(a.logger),
	}
	if backend != nil {
		opts = append(opts,
			orchestrator.WithResolver(jobs.NewResolver(backend,
				jobs.WithQualifier(a.qualifier()),
				jobs.WithCallTimeout(a.cfg.CallTimeout),
				jobs.WithCacheTTL(a.cfg.CacheTTL),
				jobs.WithResolverLogger(a.logger),
			)),
			orchestrator.WithClient(jobs.NewClient(backend,
				jobs.WithSubmitTimeout(a.cfg.CallTimeout),
				jobs.WithClientLogger(a.logger),
			)),
		)
	}
	if t := a.cfg.Theme; t.Name != "" {
		manifest := &theme.Manifest{Name: t.Name, Tokens: t.Tokens}
		opts = append(opts, orchestrator.WithTheme(render.ManifestSelector{Manifest: manifest}, t.Name, t.Variant))
	}
	return orchestrator.New(append(opts, extra...)...), nil
}

func (a *app) reportFailures(c *catalog.Catalog) {
	for _, failure := range c.Failures() {
		a.logger.WithField("file", failure.Source).WithError(failure.Err).Warn("schema document skipped")
	}
}
