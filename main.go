package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Selection
	patternList    string
	languageList   string
	recursive      bool
	groupByPattern bool

	// Filtering
	showHidden bool
	noIgnore   bool

	// Decoding
	encodingName string

	// Token counting
	tokenizerType  string
	tokenizerModel string
	tokenizerFile  string

	// Output
	outputFormat    string
	outputFile      string
	copyToClipboard bool
	pdfOutputFile   string
	showFiles       bool

	// Misc
	interactiveMode bool
	verbose         bool

	languages *LanguageTable
)

// version is set via ldflags.
var version string = "dev"

var rootCmd = &cobra.Command{
	Use:   "tokentally [PATHS...]",
	Short: "tokentally counts tokens across files, folders, git repos and web pages.",
	Long: `tokentally resolves files from paths, folders, glob patterns or language
identifiers, counts tokens per file with a pluggable tokenizer, and reports
structured aggregates with per-folder, per-pattern and per-language groups.`,
	Version: version,
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()

		inputs := args
		if interactiveMode {
			selected, err := runInteractiveFinder(showHidden)
			if err != nil {
				return fmt.Errorf("interactive mode: %w", err)
			}
			if selected == nil {
				return nil // Aborted by the user
			}
			inputs = selected
		}
		if len(inputs) == 0 {
			inputs = []string{"."}
		}

		counter, err := newCounter(tokenizerType, tokenizerModel, tokenizerFile)
		if err != nil {
			return fmt.Errorf("initializing tokenizer: %w", err)
		}
		defer counter.Close()

		agg := NewAggregator(counter)
		agg.Encoding = encodingName
		agg.IncludeHidden = showHidden
		agg.UseGitignore = !noIgnore
		agg.Log = log.Logger
		if languages != nil {
			agg.Languages = languages
		}

		result, cleanup, err := run(agg, inputs)
		defer cleanup()
		if err != nil {
			return err
		}

		return emit(result)
	},
}

// run resolves the inputs (local paths, git URLs, web URLs), dispatches to
// the grouping the flags select, and folds everything into one aggregate.
func run(agg *Aggregator, inputs []string) (*AggregateResult, func(), error) {
	var localPaths []string
	var webResults []FileResult
	var tempDirs []string
	cleanup := func() {
		for _, dir := range tempDirs {
			log.Debug().Str("dir", dir).Msg("removing temporary clone")
			_ = os.RemoveAll(dir)
		}
	}

	for _, input := range inputs {
		switch {
		case isWebURL(input):
			webResults = append(webResults, fetchWebPage(agg, input))
		case isGitURL(input):
			tempDir, err := cloneGitRepo(input)
			if err != nil {
				log.Error().Str("url", input).Err(err).Msg("clone failed")
				webResults = append(webResults, fileError(FileResult{FilePath: input}, err.Error()))
				continue
			}
			tempDirs = append(tempDirs, tempDir)
			localPaths = append(localPaths, tempDir)
		default:
			localPaths = append(localPaths, input)
		}
	}

	patterns := splitList(patternList)
	langs := splitList(languageList)

	var result *AggregateResult
	var err error
	switch {
	case len(localPaths) == 0:
		r := aggregate(webResults)
		result = &r
		return result, cleanup, nil
	case len(langs) > 0:
		result, err = agg.CountByLanguage(localPaths, langs, recursive)
	case groupByPattern:
		result, err = agg.CountByPattern(localPaths, patterns, recursive)
	default:
		result, err = countMixed(agg, localPaths, patterns)
	}
	if err != nil {
		return nil, cleanup, err
	}

	if len(webResults) > 0 {
		web := aggregate(webResults)
		result = mergeAggregates(result, &web)
	}
	return result, cleanup, nil
}

// countMixed handles the default mode where inputs may be a mix of folders
// and plain files: folders go through CountFolders, files through
// CountFiles, and the two aggregates are merged.
func countMixed(agg *Aggregator, paths, patterns []string) (*AggregateResult, error) {
	var folders, files []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			folders = append(folders, p)
		} else {
			files = append(files, p)
		}
	}

	var result *AggregateResult
	if len(folders) > 0 {
		r, err := agg.CountFolders(folders, recursive, patterns)
		if err != nil {
			return nil, err
		}
		result = r
	}
	if len(files) > 0 {
		r, err := agg.CountFiles(files)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = r
		} else {
			result = mergeAggregates(result, r)
		}
	}
	return result, nil
}

// emit renders the aggregate and routes it to the selected destination.
func emit(result *AggregateResult) error {
	var report string
	var err error
	switch strings.ToLower(outputFormat) {
	case "json":
		report, err = renderJSON(result)
	case "text":
		report = renderText(result, showFiles)
	default:
		return fmt.Errorf("unsupported output format %q: use text or json", outputFormat)
	}
	if err != nil {
		return err
	}

	if pdfOutputFile != "" {
		return writePDFReport(renderText(result, showFiles), pdfOutputFile)
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(report), 0644); err != nil {
			return fmt.Errorf("error writing to %s: %w", outputFile, err)
		}
		log.Info().Str("file", outputFile).Msg("report saved")
		return nil
	}
	if copyToClipboard {
		if err := clipboard.WriteAll(report); err != nil {
			log.Error().Err(err).Msg("clipboard write failed, printing instead")
			fmt.Print(report)
			return nil
		}
		log.Info().Msg("report copied to clipboard")
		return nil
	}
	fmt.Print(report)
	return nil
}

func setupLogging() {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// splitList splits a comma-separated flag value into trimmed entries.
func splitList(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func init() {
	cobra.OnInitialize(initConfig, initLanguages)

	// Selection
	rootCmd.Flags().StringVarP(&patternList, "pattern", "p", "", "File name patterns to include (comma-separated, e.g. *.go,*.py)")
	viper.BindPFlag("pattern", rootCmd.Flags().Lookup("pattern"))
	rootCmd.Flags().StringVarP(&languageList, "language", "l", "", "Languages to count, grouped per language (comma-separated, e.g. python,go)")
	viper.BindPFlag("language", rootCmd.Flags().Lookup("language"))
	rootCmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "Descend into subdirectories")
	viper.BindPFlag("recursive", rootCmd.Flags().Lookup("recursive"))
	rootCmd.Flags().BoolVar(&groupByPattern, "group-by-pattern", false, "Report one group per pattern instead of per folder")
	viper.BindPFlag("group_by_pattern", rootCmd.Flags().Lookup("group-by-pattern"))

	// Filtering
	rootCmd.Flags().BoolVarP(&showHidden, "hidden", "H", false, "Include hidden files and directories")
	viper.BindPFlag("hidden", rootCmd.Flags().Lookup("hidden"))
	rootCmd.Flags().BoolVar(&noIgnore, "no-ignore", false, "Don't respect .gitignore files")
	viper.BindPFlag("no_ignore", rootCmd.Flags().Lookup("no-ignore"))

	// Decoding
	rootCmd.Flags().StringVar(&encodingName, "encoding", "utf-8", "Text encoding of the input files (IANA name)")
	viper.BindPFlag("encoding", rootCmd.Flags().Lookup("encoding"))

	// Token counting
	rootCmd.Flags().StringVar(&tokenizerType, "tokenizer", "tiktoken", "Tokenizer: tiktoken, huggingface, words or chars")
	viper.BindPFlag("tokenizer", rootCmd.Flags().Lookup("tokenizer"))
	rootCmd.Flags().StringVar(&tokenizerModel, "model", "", "Model name for the tokenizer (e.g. gpt-4o, gpt2)")
	viper.BindPFlag("model", rootCmd.Flags().Lookup("model"))
	rootCmd.Flags().StringVar(&tokenizerFile, "tokenizer-file", "", "Path to a local tokenizer file")
	viper.BindPFlag("tokenizer_file", rootCmd.Flags().Lookup("tokenizer-file"))

	// Output
	rootCmd.Flags().StringVarP(&outputFormat, "format", "o", "text", "Output format: text or json")
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	rootCmd.Flags().StringVarP(&outputFile, "file", "f", "", "Save the report to a file")
	viper.BindPFlag("file", rootCmd.Flags().Lookup("file"))
	rootCmd.Flags().BoolVarP(&copyToClipboard, "clipboard", "c", false, "Copy the report to the clipboard")
	viper.BindPFlag("clipboard", rootCmd.Flags().Lookup("clipboard"))
	rootCmd.Flags().StringVar(&pdfOutputFile, "pdf", "", "Save the report as PDF")
	viper.BindPFlag("pdf", rootCmd.Flags().Lookup("pdf"))
	rootCmd.Flags().BoolVar(&showFiles, "show-files", true, "Include per-file lines in the text report")
	viper.BindPFlag("show_files", rootCmd.Flags().Lookup("show-files"))

	// Misc
	rootCmd.Flags().BoolVar(&interactiveMode, "interactive", false, "Pick paths with an interactive fuzzy finder")
	viper.BindPFlag("interactive", rootCmd.Flags().Lookup("interactive"))
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))

	viper.SetDefault("recursive", true)
	viper.SetDefault("encoding", "utf-8")
	viper.SetDefault("tokenizer", "tiktoken")
	viper.SetDefault("format", "text")
	viper.SetDefault("show_files", true)
}

// initConfig reads the config file and TOKENTALLY_* environment variables.
func initConfig() {
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)

	viper.AddConfigPath(filepath.Join(home, ".config", "tokentally"))
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TOKENTALLY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}

	applyConfig()
}

// applyConfig copies the effective viper values onto the flag variables for
// every flag the user did not set explicitly, so config-file and
// TOKENTALLY_* settings actually take effect. Precedence ends up as
// flag > env > config > default.
func applyConfig() {
	flags := rootCmd.Flags()
	apply := func(flag string, set func()) {
		if !flags.Changed(flag) {
			set()
		}
	}

	apply("pattern", func() { patternList = viper.GetString("pattern") })
	apply("language", func() { languageList = viper.GetString("language") })
	apply("recursive", func() { recursive = viper.GetBool("recursive") })
	apply("group-by-pattern", func() { groupByPattern = viper.GetBool("group_by_pattern") })
	apply("hidden", func() { showHidden = viper.GetBool("hidden") })
	apply("no-ignore", func() { noIgnore = viper.GetBool("no_ignore") })
	apply("encoding", func() { encodingName = viper.GetString("encoding") })
	apply("tokenizer", func() { tokenizerType = viper.GetString("tokenizer") })
	apply("model", func() { tokenizerModel = viper.GetString("model") })
	apply("tokenizer-file", func() { tokenizerFile = viper.GetString("tokenizer_file") })
	apply("format", func() { outputFormat = viper.GetString("format") })
	apply("file", func() { outputFile = viper.GetString("file") })
	apply("clipboard", func() { copyToClipboard = viper.GetBool("clipboard") })
	apply("pdf", func() { pdfOutputFile = viper.GetString("pdf") })
	apply("show-files", func() { showFiles = viper.GetBool("show_files") })
	apply("interactive", func() { interactiveMode = viper.GetBool("interactive") })
	apply("verbose", func() { verbose = viper.GetBool("verbose") })
}

// initLanguages loads the language table, including user overrides from
// languages.yml when present.
func initLanguages() {
	var err error
	languages, err = loadLanguageTable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load language definitions: %v\n", err)
		languages = DefaultLanguages()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
