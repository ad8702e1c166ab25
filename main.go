package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"xupg/internal/catalog"
	"xupg/internal/commands"
	"xupg/internal/config"
	"xupg/internal/env"
	"xupg/internal/installer"
	"xupg/internal/platform"
	"xupg/internal/registry"
	"xupg/internal/theme"
	"xupg/internal/updater"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// Version is set during build time via ldflags
var Version = "dev"

// Use xupg theme
var (
	successStyle = theme.SuccessStyle
	errorStyle   = theme.ErrorStyle
	warningStyle = theme.WarningStyle
	infoStyle    = theme.InfoStyle
	titleStyle   = theme.Title
)

// logger is the diagnostic logger, enabled by --debug or XUPG_DEBUG
var logger = zerolog.Nop()

func main() {
	args, debug := extractDebugFlag(os.Args[1:])
	logger = commands.NewLogger(debug || commands.DebugEnabled(), os.Stderr)

	if len(args) < 1 {
		printUsage()
		os.Exit(commands.ExitUsage)
	}

	command, rest := args[0], args[1:]

	var notice <-chan string
	if command != "update" && installer.IsTerminal() {
		notice = checkForUpdateBackground()
	}

	var err error
	switch command {
	case "list", "ls":
		err = handleList(rest)
	case "get":
		err = handleGet(rest)
	case "install":
		err = handleInstall(rest)
	case "xampp":
		err = handleXampp(rest)
	case "update":
		err = handleUpdate()
	case "version", "-v", "--version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		err = commands.Usagef("unknown command: %s", command)
	}

	if err != nil {
		printError(err)
	}
	showUpdateNotice(notice)
	os.Exit(commands.ExitCode(err))
}

func extractDebugFlag(args []string) ([]string, bool) {
	out := make([]string, 0, len(args))
	debug := false
	for _, a := range args {
		if a == "--debug" {
			debug = true
			continue
		}
		out = append(out, a)
	}
	return out, debug
}

func printError(err error) {
	fmt.Println()

	var agg *installer.AggregateError
	if errors.As(err, &agg) {
		fmt.Println(theme.ErrorMessage(fmt.Sprintf("%d of %d downloads failed:", len(agg.Failures), agg.Total)))
		for _, f := range agg.Failures {
			fmt.Printf("  %s %s\n", theme.PathStyle.Render(f.Task.URL), theme.Faint.Render(f.Err.Error()))
		}
		fmt.Println(theme.Faint.Render("  Failed archives were removed; run the command again to retry."))
		return
	}

	fmt.Println(theme.ErrorMessage(err.Error()))
	switch {
	case errors.Is(err, commands.ErrUsage):
		fmt.Println(theme.Faint.Render("  Run 'xupg help' for usage."))
	case errors.Is(err, os.ErrPermission):
		if hint := env.ElevationHint(); hint != "" {
			fmt.Println(theme.Faint.Render("  " + hint))
		}
	}
}

// newApp loads the configuration and builds the command context
func newApp() (*commands.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return commands.NewApp(cfg, logger)
}

func fetchCatalog(app *commands.App) (catalog.Catalog, error) {
	var cat catalog.Catalog
	err := installer.WithSpinner("Fetching release catalog...", func() error {
		var err error
		cat, err = app.FetchCatalog(context.Background())
		return err
	})
	return cat, err
}

// loadLocal loads the downloaded archives of kind and warns about files it
// could not map to a version
func loadLocal(app *commands.App, kind registry.Kind) (*registry.Package, error) {
	pkg, unrecognized, err := app.LocalPackage(kind)
	if err != nil {
		return nil, err
	}
	for _, fe := range unrecognized {
		fmt.Println(theme.WarningMessage("Ignoring " + fe.Path + ": name does not match <package>-<version>.<ext>"))
	}
	return pkg, nil
}

func handleList(args []string) error {
	fs := commands.NewFlagSet("list")
	kindFlags := commands.NewKindFlags(fs)
	online := fs.Bool("online", false, "list catalog releases")
	fs.BoolVar(online, "o", false, "list catalog releases")

	rest, err := commands.Parse(fs, args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return commands.Usagef("list takes no arguments, got %q", strings.Join(rest, " "))
	}

	kinds := kindFlags.Selected()
	if len(kinds) == 0 {
		kinds = registry.Kinds()
	}

	app, err := newApp()
	if err != nil {
		return err
	}

	if *online {
		return listOnline(app, kinds)
	}
	return listLocal(app, kinds)
}

func listOnline(app *commands.App, kinds []registry.Kind) error {
	plat, err := app.Platform()
	if err != nil {
		return err
	}

	cat, err := fetchCatalog(app)
	if err != nil {
		return err
	}

	for _, kind := range kinds {
		fmt.Println()
		fmt.Println(titleStyle.Render(fmt.Sprintf("Available %s versions for %s", kind.Name(), strings.ToUpper(plat.String()))))
		fmt.Println()

		rows, ok := commands.OnlineRows(cat, plat, kind)
		if !ok || len(rows) == 0 {
			fmt.Println(warningStyle.Render(fmt.Sprintf("No %s releases published for %s.", kind.Name(), plat)))
			continue
		}
		fmt.Println(theme.Table([]string{"Version", "Release Date"}, rows))
	}
	fmt.Println()
	return nil
}

func listLocal(app *commands.App, kinds []registry.Kind) error {
	for _, kind := range kinds {
		pkg, err := loadLocal(app, kind)
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(titleStyle.Render(fmt.Sprintf("Downloaded %s versions", kind.Name())))
		fmt.Println()

		if pkg.Len() == 0 {
			fmt.Println(infoStyle.Render(fmt.Sprintf("No %s archives downloaded.", kind.Name())))
			fmt.Println(theme.Faint.Render(fmt.Sprintf("  Run 'xupg list --%s --online' to see what is available.", kind.Slug())))
			continue
		}
		fmt.Println(theme.Table([]string{"Version", "Location", "Size"}, commands.LocalRows(pkg)))
	}
	fmt.Println()
	return nil
}

func handleGet(args []string) error {
	fs := commands.NewFlagSet("get")
	kindFlags := commands.NewKindFlags(fs)

	versions, err := commands.Parse(fs, args)
	if err != nil {
		return err
	}
	kind, err := kindFlags.One()
	if err != nil {
		return err
	}
	if len(versions) == 0 && !installer.IsTerminal() {
		return commands.Usagef("get requires at least one version, e.g. xupg get --%s 8.2.1", kind.Slug())
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	plat, err := app.Platform()
	if err != nil {
		return err
	}
	cat, err := fetchCatalog(app)
	if err != nil {
		return err
	}
	local, err := loadLocal(app, kind)
	if err != nil {
		return err
	}

	if len(versions) == 0 {
		versions, err = selectRemoteVersions(app.RemotePackage(cat, plat, kind), local)
		if err != nil {
			fmt.Println(warningStyle.Render("Selection cancelled."))
			return nil
		}
		if len(versions) == 0 {
			fmt.Println(infoStyle.Render("Nothing selected."))
			return nil
		}
	}

	return download(app, commands.PlanDownloads(cat, plat, local, versions), plat)
}

// download runs plan and reports every version it could not fetch
func download(app *commands.App, plan commands.Plan, plat platform.Platform) error {
	for _, v := range plan.Present {
		fmt.Println(theme.InfoMessage(fmt.Sprintf("%s %s is already downloaded", plan.Kind.Name(), v)))
	}
	for _, v := range plan.Missing {
		fmt.Println(theme.WarningMessage(fmt.Sprintf("%s %s is not available for %s", plan.Kind.Name(), v, plat)))
	}

	if len(plan.Downloads) == 0 {
		if len(plan.Missing) > 0 && len(plan.Present) == 0 {
			return fmt.Errorf("%s %s: %w", plan.Kind.Name(), strings.Join(plan.Missing, ", "), registry.ErrVersionNotAvailable)
		}
		return nil
	}

	fmt.Println()
	fmt.Println(titleStyle.Render(fmt.Sprintf("Downloading %d %s archive(s)", len(plan.Downloads), plan.Kind.Name())))

	err := runDownloads(app, plan)

	failed := make(map[installer.Task]bool)
	var agg *installer.AggregateError
	if errors.As(err, &agg) {
		for _, f := range agg.Failures {
			failed[f.Task] = true
		}
	}

	fmt.Println()
	for _, d := range plan.Downloads {
		if !failed[d.Task] {
			fmt.Println(theme.SuccessMessage(fmt.Sprintf("%s %s saved to %s", plan.Kind.Name(), d.Version, d.Task.Dest)))
		}
	}
	return err
}

func runDownloads(app *commands.App, plan commands.Plan) error {
	if !installer.IsTerminal() {
		plain := installer.NewPlainProgress(os.Stdout)
		sinks := make(map[installer.Task]installer.Progress, len(plan.Downloads))
		for _, d := range plan.Downloads {
			sinks[d.Task] = plain.Add(plan.Kind.Name()+" "+d.Version, installer.Bytes)
		}
		return app.NewDownloader(func(t installer.Task) installer.Progress { return sinks[t] }).
			DownloadAll(context.Background(), plan.Tasks())
	}

	bars := installer.NewMultiProgress()
	sinks := make(map[installer.Task]installer.Progress, len(plan.Downloads))
	for _, d := range plan.Downloads {
		sinks[d.Task] = bars.Add(plan.Kind.Name()+" "+d.Version, installer.Bytes)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bars.Start()
	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		if bars.Wait() {
			// ctrl+c aborts the remaining transfers
			cancel()
		}
	}()

	err := app.NewDownloader(func(t installer.Task) installer.Progress { return sinks[t] }).
		DownloadAll(ctx, plan.Tasks())
	<-uiDone
	return err
}

func handleInstall(args []string) error {
	fs := commands.NewFlagSet("install")
	kindFlags := commands.NewKindFlags(fs)
	target := fs.String("path", "", "directory to extract into")
	fs.StringVar(target, "p", "", "directory to extract into")
	withDownload := fs.Bool("download", false, "download the version first when it is not local")

	rest, err := commands.Parse(fs, args)
	if err != nil {
		return err
	}
	kind, err := kindFlags.One()
	if err != nil {
		return err
	}
	if *target == "" {
		return commands.Usagef("install requires --path <dir>")
	}
	if len(rest) > 1 {
		return commands.Usagef("install takes a single version")
	}

	version := ""
	if len(rest) == 1 {
		version = rest[0]
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	return installVersion(app, kind, version, *target, *withDownload)
}

func handleXampp(args []string) error {
	if len(args) == 0 || args[0] != "php" {
		return commands.Usagef("usage: xupg xampp php --set <version> [--path <dir>]")
	}

	fs := commands.NewFlagSet("xampp php")
	version := fs.String("set", "", "PHP version to install")
	target := fs.String("path", "", "XAMPP PHP directory")
	withDownload := fs.Bool("download", false, "download the version first when it is not local")

	rest, err := commands.Parse(fs, args[1:])
	if err != nil {
		return err
	}
	if *version == "" && len(rest) == 1 {
		*version = rest[0]
	}

	app, err := newApp()
	if err != nil {
		return err
	}

	if *target == "" {
		*target = app.Config.XamppPath
	}
	if *target == "" {
		*target = env.XamppPHPPath()
	}

	if previous := app.Config.InstalledAt(*target); previous != nil {
		fmt.Println(theme.Faint.Render(fmt.Sprintf("Currently installed: PHP %s (%s)", previous.Version, previous.InstalledAt)))
	}
	return installVersion(app, registry.PHP, *version, *target, *withDownload)
}

func installVersion(app *commands.App, kind registry.Kind, version, target string, withDownload bool) error {
	pkg, err := loadLocal(app, kind)
	if err != nil {
		return err
	}

	if version == "" {
		if !installer.IsTerminal() {
			return commands.Usagef("a %s version is required", kind.Name())
		}
		if pkg.Len() == 0 {
			return fmt.Errorf("no %s archives downloaded: %w", kind.Name(), registry.ErrVersionNotAvailable)
		}
		v, err := selectLocalVersion(pkg)
		if err != nil {
			fmt.Println(warningStyle.Render("Selection cancelled."))
			return nil
		}
		version = v
	}

	if withDownload && !pkg.HasVersion(version) {
		plat, err := app.Platform()
		if err != nil {
			return err
		}
		cat, err := fetchCatalog(app)
		if err != nil {
			return err
		}
		if err := download(app, commands.PlanDownloads(cat, plat, pkg, []string{version}), plat); err != nil {
			return err
		}
		if pkg, err = loadLocal(app, kind); err != nil {
			return err
		}
	}

	if pkg.HasVersion(version) {
		if ok, err := confirmOverwrite(target); err != nil || !ok {
			fmt.Println(warningStyle.Render("Installation cancelled."))
			return nil
		}
	}

	fmt.Printf("Installing %s %s to %s\n",
		kind.Name(),
		theme.HighlightText(version),
		theme.PathStyle.Render(target))

	label := fmt.Sprintf("Extracting %s %s", kind.Name(), version)
	if installer.IsTerminal() {
		bars := installer.NewMultiProgress()
		sink := bars.Add(label, installer.Items)
		bars.Start()
		err = app.Install(pkg, version, target, sink)
		bars.Wait()
	} else {
		err = app.Install(pkg, version, target, installer.NewPlainProgress(os.Stdout).Add(label, installer.Items))
	}
	if err != nil {
		return fmt.Errorf("failed to install %s %s: %w", kind.Name(), version, err)
	}

	fmt.Println()
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s %s installed to %s", kind.Name(), version, target)))
	return nil
}

// confirmOverwrite asks before extracting over existing files. A target
// that is missing or empty needs no confirmation.
func confirmOverwrite(target string) (bool, error) {
	entries, err := os.ReadDir(target)
	if err != nil || len(entries) == 0 || !installer.IsTerminal() {
		return true, nil
	}
	return confirmAction(
		fmt.Sprintf("%s is not empty", target),
		"Files from the archive will overwrite existing ones. Continue?")
}

// selectRemoteVersions shows a multi-select of catalog versions, marking
// those already downloaded
func selectRemoteVersions(remote, local *registry.Package) ([]string, error) {
	versions := remote.Versions()
	if len(versions) == 0 {
		return nil, nil
	}

	options := make([]huh.Option[string], len(versions))
	for i, v := range versions {
		label := v.Version
		if local.HasVersion(v.Version) {
			label += " " + theme.Faint.Render("[downloaded]")
		}
		options[i] = huh.NewOption(label, v.Version)
	}

	var selected []string
	err := huh.NewMultiSelect[string]().
		Title(theme.Subtitle.Render(fmt.Sprintf("Select %s versions to download", remote.Name()))).
		Description(theme.Faint.Render("Space to toggle, Enter to confirm")).
		Options(options...).
		Value(&selected).
		Run()
	return selected, err
}

// selectLocalVersion shows an interactive selector for downloaded versions
func selectLocalVersion(pkg *registry.Package) (string, error) {
	versions := pkg.Versions()

	options := make([]huh.Option[string], len(versions))
	for i, v := range versions {
		versionPart := theme.CurrentStyle.Render(v.Version)

		// Compute padding based on visual width to align columns
		pad := 0
		if w := lipgloss.Width(versionPart); w < 12 {
			pad = 12 - w
		}

		label := fmt.Sprintf("%s%s %s", versionPart, strings.Repeat(" ", pad), theme.Faint.Render(v.Size()))
		options[i] = huh.NewOption(label, v.Version)
	}

	var selected string
	err := huh.NewSelect[string]().
		Title(theme.Subtitle.Render(fmt.Sprintf("Select %s Version", pkg.Name()))).
		Description(theme.Faint.Render("Use arrow keys to navigate, Enter to select")).
		Options(options...).
		Value(&selected).
		Run()
	return selected, err
}

// confirmAction shows a confirmation prompt
func confirmAction(title, description string) (bool, error) {
	var confirmed bool

	err := huh.NewConfirm().
		Title(theme.Subtitle.Render(title)).
		Description(theme.Faint.Render(description)).
		Affirmative(theme.SuccessStyle.Render("Yes")).
		Negative(theme.ErrorStyle.Render("No")).
		Value(&confirmed).
		Run()

	return confirmed, err
}

func printVersion() {
	linkStyle := lipgloss.NewStyle().
		Foreground(theme.Info).
		Underline(true)

	fmt.Printf("%s %s %s\n",
		theme.Subtitle.Render("xupg"),
		theme.Faint.Render("version"),
		theme.HighlightText(Version))
	fmt.Println(linkStyle.Render("https://github.com/" + updater.GitHubRepo))
}

func printUsage() {
	banner := `
__  ___   _ _ __   __ _
\ \/ / | | | '_ \ / _' |
 >  <| |_| | |_) | (_| |
/_/\_\\__,_| .__/ \__, |
           |_|    |___/ `

	fmt.Println(theme.Banner.Render(banner))
	fmt.Println(theme.Subtitle.Render("PHP, MySQL and phpMyAdmin version installer"))
	fmt.Println()

	fmt.Println(theme.Title.Render("USAGE"))
	fmt.Println(theme.Faint.Render("  xupg <command> [flags] [arguments]"))
	fmt.Println()

	categoryStyle := theme.Subtitle
	commandStyle := theme.CommandStyle
	descStyle := theme.Faint

	fmt.Println(categoryStyle.Render("VERSIONS"))
	fmt.Printf("  %s [--online]                        %s\n",
		commandStyle.Render("list"),
		descStyle.Render("List downloaded (or, with --online, published) versions"))
	fmt.Printf("  %s <version>...                       %s\n",
		commandStyle.Render("get"),
		descStyle.Render("Download one or more versions concurrently"))
	fmt.Println()

	fmt.Println(categoryStyle.Render("INSTALLATION"))
	fmt.Printf("  %s --path <dir> [--download] <version> %s\n",
		commandStyle.Render("install"),
		descStyle.Render("Extract a downloaded version into a directory"))
	fmt.Printf("  %s --set <version> [--path <dir>]    %s\n",
		commandStyle.Render("xampp php"),
		descStyle.Render("Replace the PHP of a XAMPP installation"))
	fmt.Println()

	fmt.Println(categoryStyle.Render("PACKAGE FLAGS"))
	fmt.Printf("  %s  %s  %s   %s\n",
		commandStyle.Render("--php"),
		commandStyle.Render("--mysql"),
		commandStyle.Render("--phpmyadmin"),
		descStyle.Render("Select the package (PHP when omitted)"))
	fmt.Println()

	fmt.Println(categoryStyle.Render("OTHER"))
	fmt.Printf("  %s     %s\n", commandStyle.Render("update"), descStyle.Render("Check for and install xupg updates"))
	fmt.Printf("  %s    %s\n", commandStyle.Render("version"), descStyle.Render("Show version information"))
	fmt.Printf("  %s       %s\n", commandStyle.Render("help"), descStyle.Render("Show this help message"))
	fmt.Printf("  %s    %s\n", commandStyle.Render("--debug"), descStyle.Render("Print diagnostic logs to stderr"))
	fmt.Println()

	fmt.Println(theme.Title.Render("EXAMPLES"))
	fmt.Println("  " + theme.Code.Render("xupg list --php --online") + "                # Published PHP versions")
	fmt.Println("  " + theme.Code.Render("xupg get --php 8.2.1 8.3.0") + "              # Download two versions")
	fmt.Println("  " + theme.Code.Render("xupg install --php --path ./php 8.2.1") + "   # Extract into ./php")
	fmt.Println("  " + theme.Code.Render("xupg xampp php --set 8.2.1") + "              # Swap XAMPP's PHP")
	fmt.Println()

	fmt.Println(theme.Faint.Italic(true).Render("Archives are kept in ~/.xupg/module/downloads; configuration in ~/.config/xupg/xupg.json"))
}

func handleUpdate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if !cfg.UpdateConfig.Enabled {
		fmt.Println(warningStyle.Render("Updates are disabled in configuration."))
		fmt.Println(theme.Faint.Render("To enable, edit " + cfg.Path() + " and set update_config.enabled to true"))
		return nil
	}

	upd, err := updater.NewUpdater(cfg, Version, logger)
	if err != nil {
		return err
	}

	report := updater.NewReport(os.Stdout)
	report.Checking()

	ctx, cancel := context.WithTimeout(context.Background(), updater.UpdateTimeout)
	defer cancel()

	release, err := upd.CheckForUpdate(ctx)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}
	if release == nil {
		report.UpToDate(upd.CurrentVersion())
		return nil
	}

	choice, err := upd.Ask(release)
	if err != nil {
		fmt.Println(warningStyle.Render("Update cancelled."))
		return nil
	}
	if choice != updater.ChoiceInstall {
		report.Declined(choice, release.Version())
		return nil
	}

	report.Downloading(release)
	if err := upd.PerformUpdate(ctx, release); err != nil {
		report.Failed(err)
		os.Exit(commands.ExitError)
	}

	report.Installed(release.Version())
	return nil
}

// checkForUpdateBackground looks for a newer release while the command
// runs. The channel yields the latest version, or closes empty.
func checkForUpdateBackground() <-chan string {
	notice := make(chan string, 1)

	go func() {
		defer close(notice)
		defer func() {
			if r := recover(); r != nil {
				logger.Debug().Interface("panic", r).Msg("background update check")
			}
		}()

		cfg, err := config.Load()
		if err != nil {
			return
		}
		upd, err := updater.NewUpdater(cfg, Version, logger)
		if err != nil || !upd.ShouldCheckForUpdate() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		release, err := upd.CheckForUpdate(ctx)
		if err != nil || release == nil {
			return
		}
		notice <- release.Version()
	}()

	return notice
}

// showUpdateNotice prints the background check result if it is ready
// shortly after the command finished
func showUpdateNotice(notice <-chan string) {
	if notice == nil {
		return
	}
	select {
	case latest, ok := <-notice:
		if ok {
			updater.Notice(os.Stdout, Version, latest)
		}
	case <-time.After(500 * time.Millisecond):
	}
}
