package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"wishlist-go/internal/app"
	"wishlist-go/internal/config"
	"wishlist-go/internal/upload"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a WishlistApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "DraftSet", "Upload").
func newApp(ctx context.Context, operation string) (*app.WishlistApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewWishlistApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// openDraft creates the app and restores the stored draft, asking for the
// passphrase first when drafts are encrypted.
func openDraft(ctx context.Context, operation string) (*app.WishlistApp, error) {
	a, err := newApp(ctx, operation)
	if err != nil {
		return nil, err
	}
	if a.NeedsPassphrase() {
		pass, err := readPassphrase("Passphrase: ")
		if err == nil {
			err = a.Unlock(pass)
		}
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Restore()
	return a, nil
}

// readPassphrase takes WISHLIST_PASSPHRASE when set and otherwise prompts on
// the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	if pass := os.Getenv("WISHLIST_PASSPHRASE"); pass != "" {
		return pass, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("passphrase required: set WISHLIST_PASSPHRASE or run in a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

// finish records err on the operation and closes the app.
func finish(a *app.WishlistApp, err error) error {
	a.Fail(err)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

var rootCmd = &cobra.Command{
	Use:          "wishlist",
	Short:        "Draft wishlist items and upload their images",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = defaults.UserID
		}

		cfg := config.NewConfig(userID, defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("User ID:  %s\n", displayUser(userID))
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("User ID:      %s\n", displayUser(cfg.UserID))
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Storage:      %s (encrypted: %t)\n", cfg.Storage.Type, cfg.Storage.Encrypted)
		fmt.Printf("Object Store: %s\n", cfg.ObjectStore.Type)
		fmt.Printf("Metrics:      %t\n", cfg.Metrics.Enabled)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the object store is reachable",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "CheckObjectStore")
		if err != nil {
			return err
		}
		defer func() { err = finish(a, err) }()

		if err := a.CheckObjectStore(cmd.Context()); err != nil {
			return fmt.Errorf("object store check failed: %w", err)
		}
		fmt.Println("Object store OK")
		return nil
	},
}

func displayUser(id string) string {
	if id == "" {
		return "(anonymous)"
	}
	return id
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage draft encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the key pair used to encrypt drafts",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "KeysInit")
		if err != nil {
			return err
		}
		defer func() { err = finish(a, err) }()

		pass, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		if os.Getenv("WISHLIST_PASSPHRASE") == "" {
			confirm, err := readPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if confirm != pass {
				return errors.New("passphrases do not match")
			}
		}

		if err := a.SetupKeys(pass); err != nil {
			return err
		}
		fmt.Println("Keys created. Set encrypted = true under [storage] to encrypt drafts.")
		return nil
	},
}

// draft command
var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Edit the add-item draft",
}

var draftSetCmd = &cobra.Command{
	Use:   "set FIELD [VALUE]",
	Short: "Set or unset a draft field",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		unset, _ := cmd.Flags().GetBool("unset")
		if !unset && len(args) != 2 {
			return errors.New("VALUE is required unless --unset is given")
		}

		a, err := openDraft(cmd.Context(), "DraftSet")
		if err != nil {
			return err
		}
		defer func() { err = finish(a, err) }()

		if unset {
			if err := a.UnsetField(args[0]); err != nil {
				return err
			}
			fmt.Printf("Unset %s\n", args[0])
			return nil
		}
		if err := a.SetField(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Set %s\n", args[0])
		return nil
	},
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current draft",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := openDraft(cmd.Context(), "DraftShow")
		if err != nil {
			return err
		}
		defer func() { err = finish(a, err) }()

		st := a.Draft()
		if st.Timestamp == nil {
			fmt.Println("No draft.")
			return nil
		}
		if st.IsRestored {
			fmt.Printf("Restored draft from %s\n", st.Timestamp.Local().Format("2006-01-02 15:04:05"))
		}
		return printJSON(st.FormData)
	},
}

var draftClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the draft",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := openDraft(cmd.Context(), "DraftClear")
		if err != nil {
			return err
		}
		defer func() { err = finish(a, err) }()

		a.ClearDraft()
		fmt.Println("Draft cleared.")
		return nil
	},
}

var draftSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate the draft as a new wishlist item and clear it",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := openDraft(cmd.Context(), "DraftSubmit")
		if err != nil {
			return err
		}
		defer func() { err = finish(a, err) }()

		item, err := a.Submit()
		if err != nil {
			return err
		}
		return printJSON(item)
	},
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		attach, _ := cmd.Flags().GetBool("attach")
		preset, _ := cmd.Flags().GetString("preset")
		noCompress, _ := cmd.Flags().GetBool("no-compress")
		if preset != "" && !upload.IsValidPreset(preset) {
			return fmt.Errorf("unknown preset %q: use low-bandwidth, balanced or high-quality", preset)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var a *app.WishlistApp
		if attach {
			a, err = openDraft(ctx, "Upload")
		} else {
			a, err = newApp(ctx, "Upload")
		}
		if err != nil {
			return err
		}
		defer func() { err = finish(a, err) }()

		if term.IsTerminal(int(os.Stderr.Fd())) {
			unwatch := a.WatchUpload(printProgress)
			defer unwatch()
		}

		url, err := a.UploadImage(ctx, args[0], attach, upload.Options{Preset: preset, SkipCompression: noCompress})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return errors.New("upload cancelled")
			}
			return err
		}
		fmt.Println(url)
		return nil
	},
}

func printProgress(s upload.Snapshot) {
	switch s.State {
	case upload.StateCompressing:
		fmt.Fprintf(os.Stderr, "\rCompressing image... %3d%%", s.CompressionProgress)
	case upload.StatePreparing:
		if c := s.Compression; c != nil && c.Compressed {
			fmt.Fprintf(os.Stderr, "\r\033[KCompressed %d -> %d bytes (%s)\n", c.OriginalSize, c.FinalSize, s.Preset)
		}
		fmt.Fprint(os.Stderr, "\rPreparing upload...")
	case upload.StateUploading:
		bar := strings.Repeat("#", s.Progress/5) + strings.Repeat(".", 20-s.Progress/5)
		fmt.Fprintf(os.Stderr, "\r[%s] %3d%%", bar, s.Progress)
	case upload.StateComplete, upload.StateError, upload.StateIdle:
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringP("user", "u", "", "User id drafts are saved for (default $WISHLIST_USER)")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configCheckCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// draft subcommands
	draftCmd.AddCommand(draftSetCmd)
	draftSetCmd.Flags().Bool("unset", false, "Clear an optional field instead of setting it")
	draftCmd.AddCommand(draftShowCmd)
	draftCmd.AddCommand(draftClearCmd)
	draftCmd.AddCommand(draftSubmitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolP("attach", "a", false, "Set the uploaded URL as the draft's image")
	uploadCmd.Flags().StringP("preset", "p", "", "Compression preset: low-bandwidth, balanced or high-quality (default from config)")
	uploadCmd.Flags().Bool("no-compress", false, "Upload the original file without compressing it")
}
