package main

import (
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/falcon/internal/agent"
	"github.com/maxbolgarin/falcon/internal/app"
	"github.com/maxbolgarin/falcon/internal/cienv"
	"github.com/maxbolgarin/falcon/internal/config"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/provider"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

var (
	Version, Branch, Commit, BuildDate string
)

var (
	cli = kingpin.New("falcon", "AI review for pull requests")

	reviewCmd  = cli.Command("review", "review a pull request and post the report").Default()
	summaryCmd = cli.Command("summary", "summarize a pull request")
	serveCmd   = cli.Command("serve", "run the webhook server")

	configPath = cli.Flag("config", "path to config file").Short('c').String()

	providerType = cli.Flag("provider", "code provider: github, bitbucket, gitlab, local").String()
	prID         = cli.Flag("pr-id", "pull request number").Int()
	owner        = cli.Flag("owner", "repository owner").String()
	repo         = cli.Flag("repo", "repository name").String()
	workspace    = cli.Flag("workspace", "Bitbucket workspace").String()
	repoSlug     = cli.Flag("repo-slug", "Bitbucket repository slug").String()
	token        = cli.Flag("token", "provider access token").String()
	bbUsername   = cli.Flag("bitbucket-username", "Bitbucket username").String()
	bbPassword   = cli.Flag("bitbucket-app-password", "Bitbucket app password").String()

	agentType  = cli.Flag("agent", "model backend: gemini, openai, claude").String()
	modelName  = cli.Flag("model", "model name").String()
	prompt     = cli.Flag("prompt", "review instructions").String()
	styleGuide = cli.Flag("style-guide", "style guide for the review").String()

	ignoreFiles = cli.Flag("ignore-files", "comma separated glob patterns of files to skip").String()
	reviewLevel = cli.Flag("review-level", "comment granularity: line or file").String()
	sections    = cli.Flag("sections", "comma separated report sections").String()
	taxonomy    = cli.Flag("taxonomy", "category preset: default or legacy").String()
	updateBody  = cli.Flag("update-body", "write the summary into the pull request body").Bool()
	dryRun      = cli.Flag("dry-run", "print the result instead of posting it").Bool()
	baseBranch  = cli.Flag("base", "base branch to diff against").String()
	debug       = cli.Flag("debug", "verbose logging").Bool()
)

func main() {
	cli.Version(lang.Check(Version, "dev"))
	command := kingpin.MustParse(cli.Parse(os.Args[1:]))

	var err error
	ctx := contem.New(contem.WithLogger(logze.DefaultPtr()), contem.Exit(&err))
	defer ctx.Shutdown()

	err = run(ctx, command)
	if err != nil {
		logze.DefaultPtr().Error("cannot run", "error", err)
	}
}

func run(ctx contem.Context, command string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return erro.Wrap(err, "load config")
	}
	applyFlags(&cfg)

	logze.Init(logze.C().WithConsole().WithLevel(lang.If(cfg.Debug, logze.LevelDebug, logze.LevelInfo)))

	mode := lang.If(command == summaryCmd.FullCommand(), model.ModeSummary, model.ModeReview)

	var target model.Target
	if command != serveCmd.FullCommand() && cfg.Provider.Type != provider.Local {
		target, mode, err = resolveTarget(&cfg, mode, command)
		if err != nil {
			return err
		}
	}

	var opts []app.Option
	if *dryRun {
		opts = append(opts, app.WithDryRun(os.Stdout))
	}

	falcon, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return erro.Wrap(err, "init")
	}

	if command == serveCmd.FullCommand() {
		return falcon.Serve(ctx)
	}

	outcome, err := falcon.Run(ctx, target, mode)
	if err != nil {
		return erro.Wrap(err, "run "+mode)
	}
	if outcome.Noop {
		logze.DefaultPtr().Info("nothing was posted", "reason", outcome.Reason)
	}

	return nil
}

// resolveTarget takes the pull request from flags, or from the CI environment when no id is given
func resolveTarget(cfg *config.Config, mode, command string) (model.Target, string, error) {
	if *prID > 0 {
		target := model.Target{
			Owner:  lang.Check(*owner, *workspace),
			Repo:   lang.Check(*repo, *repoSlug),
			Number: *prID,
		}
		if target.Owner == "" || target.Repo == "" {
			return target, mode, erro.New("owner and repository are required with --pr-id")
		}
		return target, mode, nil
	}

	ci, ok, err := cienv.Detect(os.Getenv)
	if err != nil {
		return model.Target{}, mode, erro.Wrap(err, "detect CI environment")
	}
	if !ok {
		return model.Target{}, mode, erro.New("no pull request given, set --pr-id or run inside a supported CI pipeline")
	}

	if *providerType == "" {
		cfg.Provider.Type = provider.ProviderType(ci.Target.Provider)
	}
	// an explicit summary command wins over the trigger comment
	if command != summaryCmd.FullCommand() {
		mode = ci.Mode()
	}
	logze.DefaultPtr().Info("pull request taken from CI environment", "target", ci.Target.String(), "mode", mode)

	return ci.Target, mode, nil
}

func applyFlags(cfg *config.Config) {
	if *providerType != "" {
		cfg.Provider.Type = provider.ProviderType(strings.ToLower(*providerType))
	}
	cfg.Provider.Token = lang.Check(*token, cfg.Provider.Token)
	cfg.Provider.Username = lang.Check(*bbUsername, cfg.Provider.Username)
	cfg.Provider.AppPassword = lang.Check(*bbPassword, cfg.Provider.AppPassword)

	if *agentType != "" {
		cfg.Agent.Type = agent.AgentType(strings.ToLower(*agentType))
	}
	cfg.Agent.Model = lang.Check(*modelName, cfg.Agent.Model)

	cfg.Reviewer.Prompt = lang.Check(*prompt, cfg.Reviewer.Prompt)
	cfg.Reviewer.StyleGuide = lang.Check(*styleGuide, cfg.Reviewer.StyleGuide)
	cfg.Reviewer.Granularity = lang.Check(model.Granularity(*reviewLevel), cfg.Reviewer.Granularity)
	cfg.Reviewer.Sections = lang.Check(*sections, cfg.Reviewer.Sections)
	cfg.Reviewer.TaxonomyPreset = lang.Check(*taxonomy, cfg.Reviewer.TaxonomyPreset)
	cfg.Reviewer.BaseBranch = lang.Check(*baseBranch, cfg.Reviewer.BaseBranch)
	cfg.Reviewer.UpdateBody = cfg.Reviewer.UpdateBody || *updateBody

	for _, pattern := range strings.Split(*ignoreFiles, ",") {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			cfg.Reviewer.Context.IgnoreFiles = append(cfg.Reviewer.Context.IgnoreFiles, pattern)
		}
	}

	cfg.Debug = cfg.Debug || *debug
	cfg.Reviewer.Verbose = cfg.Reviewer.Verbose || cfg.Debug
}
