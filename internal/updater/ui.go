package updater

import (
	"fmt"
	"io"
	"strings"

	"xupg/internal/theme"

	"github.com/charmbracelet/huh"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/dustin/go-humanize"
)

// Choice is the answer to the update prompt.
type Choice int

const (
	ChoiceInstall Choice = iota
	ChoiceSkip
	ChoiceLater
)

const notesLines = 8

// Ask shows the release and lets the user install it, skip it for good or
// postpone. Skipping is persisted in the config.
func (u *Updater) Ask(release *selfupdate.Release) (Choice, error) {
	choice := ChoiceInstall
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(fmt.Sprintf("xupg %s is out", release.Version())).
				Description(Summary(u.currentVersion, release)),
			huh.NewSelect[Choice]().
				Title("Install it now?").
				Options(
					huh.NewOption("Yes, replace the current binary", ChoiceInstall),
					huh.NewOption("No, and do not ask again for this release", ChoiceSkip),
					huh.NewOption("Not now", ChoiceLater),
				).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return ChoiceLater, err
	}

	if choice == ChoiceSkip {
		if err := u.SkipVersion(release.Version()); err != nil {
			u.log.Warn().Err(err).Str("version", release.Version()).Msg("failed to remember skipped release")
		}
	}
	return choice, nil
}

// Summary renders the version change, download size and the head of the
// release notes.
func Summary(current string, release *selfupdate.Release) string {
	size := "unknown"
	if release.AssetByteSize > 0 {
		size = humanize.IBytes(uint64(release.AssetByteSize))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s (%s)\n\n", current, release.Version(), size)
	b.WriteString(releaseNotes(release.ReleaseNotes, notesLines))
	return b.String()
}

// releaseNotes keeps the first non-empty lines of notes.
func releaseNotes(notes string, maxLines int) string {
	var kept []string
	dropped := 0
	for _, line := range strings.Split(notes, "\n") {
		line = strings.TrimRight(line, " \r\t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(kept) == maxLines {
			dropped++
			continue
		}
		kept = append(kept, line)
	}

	if len(kept) == 0 {
		return "No release notes."
	}
	if dropped > 0 {
		kept = append(kept, fmt.Sprintf("(%d more lines in the release notes)", dropped))
	}
	return strings.Join(kept, "\n")
}

// Report prints the steps of `xupg update`.
type Report struct {
	w io.Writer
}

// NewReport writes to w
func NewReport(w io.Writer) Report {
	return Report{w: w}
}

func (r Report) Checking() {
	fmt.Fprintln(r.w, theme.Faint.Render("Looking for a newer xupg release..."))
}

func (r Report) UpToDate(version string) {
	fmt.Fprintln(r.w, theme.SuccessMessage("xupg "+version+" is the latest release"))
}

func (r Report) Declined(choice Choice, version string) {
	if choice == ChoiceSkip {
		fmt.Fprintln(r.w, theme.InfoMessage("Release "+version+" will not be offered again"))
		return
	}
	fmt.Fprintln(r.w, theme.InfoMessage("Staying on the current release for now"))
}

func (r Report) Downloading(release *selfupdate.Release) {
	fmt.Fprintf(r.w, "\n%s %s\n",
		theme.InfoStyle.Render("Fetching xupg "+release.Version()),
		theme.Faint.Render("from "+release.AssetName))
}

func (r Report) Installed(version string) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, theme.SuccessBox.Render(theme.SuccessStyle.Render("xupg "+version+" installed")))
	fmt.Fprintln(r.w, theme.Faint.Render("The new binary is used from the next run."))
}

func (r Report) Failed(err error) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, theme.ErrorMessage("Self-update failed: "+err.Error()))
	fmt.Fprintln(r.w, theme.Faint.Render("Releases: https://github.com/"+GitHubRepo+"/releases"))
}

// Notice prints the one-line hint shown after a command when a newer
// release exists.
func Notice(w io.Writer, current, latest string) {
	fmt.Fprintf(w, "\n%s %s %s\n",
		theme.CurrentStyle.Render("xupg "+latest+" available"),
		theme.Faint.Render("(you have "+current+")"),
		theme.Code.Render("xupg update"))
}
