package reader

import (
	"fmt"
	"io"
	"strings"
	"time"

	"readaloud/internal/cli/scheme/colours"
	"readaloud/internal/speech"
	"readaloud/internal/speech/engine"

	"github.com/spf13/cobra"
)

// Commands returns the CLI subcommands backed by r.
func (r *Reader) Commands() []*cobra.Command {
	readCmd := &cobra.Command{
		Use:   "read [file|-]",
		Short: "📖 Read a passage aloud",
		Long:  "Speak a plain-text passage from a file, or from stdin with '-'",
		Args:  cobra.MaximumNArgs(1),
		Run:   r.ReadPassage,
	}
	readCmd.Flags().StringP("voice", "v", "", "Voice to use for reading. See voices for options")
	readCmd.Flags().StringP("lang", "l", "", "Language tag, e.g. en-GB")
	readCmd.Flags().Float64("rate", 0, "Speaking rate (0.1-10), defaults to settings")
	readCmd.Flags().Float64("pitch", 0, "Pitch (0-2), defaults to settings")
	readCmd.Flags().Float64("volume", 0, "Volume (0-1), defaults to settings")
	readCmd.Flags().Float64P("sleep", "s", 0, "Stop reading after this many minutes")
	readCmd.Flags().String("id", "", "Passage id used for bookmarks and history")
	readCmd.Flags().BoolP("follow", "f", true, "Print each word as it is spoken")

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 List available voices",
		Run:   r.ListVoices,
	}
	voicesCmd.Flags().StringP("lang", "l", "", "Only voices whose language starts with this tag")

	voiceCmd := &cobra.Command{
		Use:   "voice <name>",
		Short: "🎙️ Choose the default voice",
		Args:  cobra.MinimumNArgs(1),
		Run:   r.SetVoice,
	}

	cleanCmd := &cobra.Command{
		Use:   "clean [text...]",
		Short: "🧹 Show text as it would be spoken",
		Long:  "Strip parenthesised, bracketed and braced asides and collapse whitespace. Reads stdin when no text is given",
		Run:   r.CleanText,
	}

	bookmarkCmd := &cobra.Command{
		Use:   "bookmark <passage-id>",
		Short: "🔖 Toggle a bookmark",
		Args:  cobra.ExactArgs(1),
		Run:   r.ToggleBookmark,
	}

	bookmarksCmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "📚 List bookmarked passages",
		Run:   r.ListBookmarks,
	}

	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "🕐 List recently read passages",
		Run:   r.ListRecent,
	}

	enginesCmd := &cobra.Command{
		Use:   "engines",
		Short: "🔊 List TTS engines usable here",
		Run:   r.ListEngines,
	}

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show TTS settings",
		Run:   r.ShowSettings,
	}

	return []*cobra.Command{readCmd, voicesCmd, voiceCmd, cleanCmd, bookmarkCmd, bookmarksCmd, recentCmd, enginesCmd, settingsCmd}
}

func (r *Reader) ShowWelcome() {
	fmt.Fprintln(r.out)
	colours.Title.Fprintln(r.out, "🌟 Welcome to readaloud! 🌟")
	fmt.Fprintln(r.out)
	colours.Info.Fprintln(r.out, "📚 Available commands:")
	fmt.Fprintln(r.out, "  • readaloud read <file>  - Read a passage aloud")
	fmt.Fprintln(r.out, "  • readaloud voices       - Browse voices")
	fmt.Fprintln(r.out, "  • readaloud voice <name> - Pick your voice")
	fmt.Fprintln(r.out, "  • readaloud bookmarks    - Show bookmarked passages")
	fmt.Fprintln(r.out, "  • readaloud recent       - Show recently read passages")
	fmt.Fprintln(r.out, "  • readaloud settings     - Show voice settings")
	fmt.Fprintln(r.out)
}

func (r *Reader) ListVoices(cmd *cobra.Command, args []string) {
	lang, _ := cmd.Flags().GetString("lang")

	voices := r.waitForVoices()
	if lang != "" {
		voices = r.Speech().VoicesByLanguage(lang)
	}
	if len(voices) == 0 {
		colours.Warning.Fprintln(r.out, "🔍 No voices found")
		return
	}

	current := r.Speech().Settings().Voice

	fmt.Fprintln(r.out)
	colours.Title.Fprintln(r.out, "🎤 Available Voices 🎤")
	fmt.Fprintln(r.out)
	for _, v := range voices {
		if current != nil && *current == v {
			colours.Success.Fprintf(r.out, "  * %-28s %s\n", v.Name, v.Lang)
			continue
		}
		fmt.Fprintf(r.out, "    %-28s %s\n", v.Name, v.Lang)
	}
	fmt.Fprintln(r.out)
	colours.Success.Fprintf(r.out, "✨ Found %d voices\n", len(voices))
}

func (r *Reader) SetVoice(cmd *cobra.Command, args []string) {
	name := strings.Join(args, " ")
	v, ok := findVoice(r.waitForVoices(), name)
	if !ok {
		colours.Error.Fprintf(r.out, "❌ Voice '%s' not available\n", name)
		return
	}
	r.Speech().UpdateSettings(speech.SettingsUpdate{Voice: &v})
	colours.Success.Fprintf(r.out, "🎙️ Voice set to %s (%s)\n", v.Name, v.Lang)
}

func (r *Reader) CleanText(cmd *cobra.Command, args []string) {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(r.in)
		if err != nil {
			colours.Error.Fprintf(r.out, "❌ %v\n", err)
			return
		}
		text = string(data)
	}
	fmt.Fprintln(r.out, speech.Clean(text))
}

func (r *Reader) ToggleBookmark(cmd *cobra.Command, args []string) {
	r.toggleBookmark(args[0])
}

func (r *Reader) ListBookmarks(cmd *cobra.Command, args []string) {
	data := r.Passages().Load()
	if len(data.Bookmarks) == 0 {
		colours.Warning.Fprintln(r.out, "🔍 No bookmarks yet")
		return
	}

	colours.Title.Fprintln(r.out, "🔖 Bookmarks")
	for i, id := range data.Bookmarks {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, id)
	}
}

func (r *Reader) ListRecent(cmd *cobra.Command, args []string) {
	data := r.Passages().Load()
	if len(data.RecentlyViewed) == 0 {
		colours.Warning.Fprintln(r.out, "🔍 Nothing read yet")
		return
	}

	colours.Title.Fprintln(r.out, "🕐 Recently read")
	for i, v := range data.RecentlyViewed {
		when := time.UnixMilli(v.Timestamp).Format("2006-01-02 15:04:05")
		fmt.Fprintf(r.out, "  %d. %-30s ", i+1, v.ID)
		colours.Muted.Fprintln(r.out, when)
	}
}

func (r *Reader) ListEngines(cmd *cobra.Command, args []string) {
	colours.Title.Fprintln(r.out, "🔊 TTS engines")
	for _, t := range engine.Available() {
		if t.String() == r.cfg.TTS.Type {
			colours.Success.Fprintf(r.out, "  * %s\n", t)
			continue
		}
		fmt.Fprintf(r.out, "    %s\n", t)
	}
	colours.Muted.Fprintf(r.out, "Configured: %s\n", r.cfg.TTS.Type)
}

func (r *Reader) ShowSettings(cmd *cobra.Command, args []string) {
	r.waitForVoices()
	sp := r.Speech()
	settings := sp.Settings()

	fmt.Fprintln(r.out)
	colours.Title.Fprintln(r.out, "⚙️ TTS Settings ⚙️")
	fmt.Fprintln(r.out)

	colours.Prompt.Fprintln(r.out, "🎤 Voice Settings:")
	fmt.Fprintf(r.out, "  • Engine: %s\n", r.cfg.TTS.Type)
	if !sp.State().Supported {
		colours.Warning.Fprintln(r.out, "  • Speech synthesis unavailable")
	}
	if settings.Voice != nil {
		fmt.Fprintf(r.out, "  • Current voice: %s (%s)\n", settings.Voice.Name, settings.Voice.Lang)
	} else {
		fmt.Fprintln(r.out, "  • Current voice: engine default")
	}
	fmt.Fprintf(r.out, "  • Rate: %.1fx\n", settings.Rate)
	fmt.Fprintf(r.out, "  • Pitch: %.1f\n", settings.Pitch)
	fmt.Fprintf(r.out, "  • Volume: %.0f%%\n", settings.Volume*100)
	fmt.Fprintln(r.out)

	colours.Prompt.Fprintln(r.out, "💾 Storage:")
	if r.storeDir != "" {
		fmt.Fprintf(r.out, "  • Data directory: %s\n", r.storeDir)
	} else {
		fmt.Fprintln(r.out, "  • Data directory: not persisted")
	}
}
