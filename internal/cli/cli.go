// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mattsilv/codesight/internal/collect"
	"github.com/mattsilv/codesight/internal/config"
	"github.com/mattsilv/codesight/internal/prompt"
	"github.com/mattsilv/codesight/internal/services/clipboard"
	"github.com/mattsilv/codesight/internal/tokenizer"
	"github.com/mattsilv/codesight/internal/types"
	"github.com/mattsilv/codesight/internal/utils"
)

const (
	tokenLimitFlagName        = "token-limit"
	exclusionFlagName         = "exclude"
	exclusionFlagShorthand    = "e"
	includeTestsFlagName      = "include-tests"
	includeStructuralFlagName = "include-structural"
	dogfoodFlagName           = "dogfood"
	outputFileFlagName        = "output-file"
	promptFlagName            = "prompt"
	modelFlagName             = "model"
	noClipboardFlagName       = "no-clipboard"
	stalenessDaysFlagName     = "staleness-days"
	versionFlagName           = "version"
	versionTemplate           = "codesight version: %s\n"

	defaultPath           = "."
	defaultTokenizerModel = "gpt-4o"

	rootUse              = "codesight"
	rootShortDescription = "codesight command line interface"
	rootLongDescription  = `codesight collects project source files into a single document for LLM analysis.
Files are grouped by directory and ordered by recency; older files are truncated
to imports and definitions when the token budget runs out.`

	collectUse              = types.CommandCollect + " [directory]"
	collectAlias            = "c"
	collectShortDescription = "collect project files into an LLM-ready document (" + collectAlias + ")"
	collectLongDescription  = `Scan a project directory, select source files by exclusion rules, and assemble
a token-bounded document. The result is written under the project's .codesight
directory and copied to the clipboard.`
	collectUsageExample = `  # Collect the current project with the default budget
  codesight collect

  # Tight budget, tests included, nothing on the clipboard
  codesight collect --token-limit 20000 --include-tests --no-clipboard .

  # Exclude generated code and use the bug-hunting prompt
  codesight collect -e "gen/**" --prompt bugfix ~/src/service`

	tokenLimitFlagDescription        = "maximum tokens in the assembled document"
	exclusionFlagDescription         = "exclude path pattern (gitignore syntax)"
	includeTestsFlagDescription      = "include test directories and test files"
	includeStructuralFlagDescription = "include structural files such as manifests"
	dogfoodFlagDescription           = "include the .codesight directory itself"
	outputFileFlagDescription        = "output file path relative to the .codesight directory"
	promptFlagDescription            = "prompt template to embed (improvement or bugfix)"
	modelFlagDescription             = "tokenizer model to use for token counting"
	noClipboardFlagDescription       = "do not copy the document to the clipboard"
	stalenessDaysFlagDescription     = "file age in days before truncation applies"
	versionFlagDescription           = "display application version"

	warningClipboardFormat     = "Warning: failed to copy to clipboard: %v\n"
	warningSkippedEntriesLine  = "Warning: %d entries could not be read during the scan\n"
	dogfoodAutoDetectedMessage = "Auto-detected codesight project - enabling dogfood mode"

	hoursPerDay = 24
)

// Execute runs the codesight application.
func Execute() error {
	rootCommand := createRootCommand()
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand() *cobra.Command {
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.AddCommand(createCollectCommand())
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// collectOptions stores flag values for the collect command.
type collectOptions struct {
	tokenLimit        int
	exclusionPatterns []string
	includeTests      bool
	includeStructural bool
	dogfood           bool
	outputFile        string
	promptType        string
	model             string
	noClipboard       bool
	stalenessDays     int
}

// createCollectCommand returns the collect subcommand.
func createCollectCommand() *cobra.Command {
	var options collectOptions

	collectCommand := &cobra.Command{
		Use:     collectUse,
		Aliases: []string{collectAlias},
		Short:   collectShortDescription,
		Long:    collectLongDescription,
		Example: collectUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			directory := defaultPath
			if len(arguments) > 0 {
				directory = arguments[0]
			}
			return runCollect(command, directory, options)
		},
	}

	collectCommand.Flags().IntVar(&options.tokenLimit, tokenLimitFlagName, types.DefaultTokenLimit, tokenLimitFlagDescription)
	collectCommand.Flags().StringArrayVarP(&options.exclusionPatterns, exclusionFlagName, exclusionFlagShorthand, nil, exclusionFlagDescription)
	collectCommand.Flags().BoolVar(&options.includeTests, includeTestsFlagName, false, includeTestsFlagDescription)
	collectCommand.Flags().BoolVar(&options.includeStructural, includeStructuralFlagName, false, includeStructuralFlagDescription)
	collectCommand.Flags().BoolVar(&options.dogfood, dogfoodFlagName, false, dogfoodFlagDescription)
	collectCommand.Flags().StringVar(&options.outputFile, outputFileFlagName, utils.OutputFileName, outputFileFlagDescription)
	collectCommand.Flags().StringVar(&options.promptType, promptFlagName, types.PromptImprovement, promptFlagDescription)
	collectCommand.Flags().StringVar(&options.model, modelFlagName, defaultTokenizerModel, modelFlagDescription)
	collectCommand.Flags().BoolVar(&options.noClipboard, noClipboardFlagName, false, noClipboardFlagDescription)
	collectCommand.Flags().IntVar(&options.stalenessDays, stalenessDaysFlagName, 0, stalenessDaysFlagDescription)
	return collectCommand
}

// runCollect resolves configuration, runs the collection pipeline, writes the
// document, and prints the summary.
func runCollect(command *cobra.Command, directory string, options collectOptions) error {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf("unable to determine working directory: %w", workingDirectoryError)
	}

	applicationConfiguration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{WorkingDirectory: workingDirectory})
	if configurationError != nil {
		return configurationError
	}
	resolved := applyConfiguration(command, options, applicationConfiguration.Collect)

	rootDirectory, absoluteError := filepath.Abs(directory)
	if absoluteError != nil {
		return fmt.Errorf("abs failed for '%s': %w", directory, absoluteError)
	}

	if !resolved.dogfood && utils.ProjectName(rootDirectory) == "codesight" {
		fmt.Println(dogfoodAutoDetectedMessage)
		resolved.dogfood = true
	}

	gitignoreLines, gitignoreError := config.LoadGitignorePatterns(rootDirectory)
	if gitignoreError != nil {
		return gitignoreError
	}

	tokenCounter, _, counterError := tokenizer.NewCounter(tokenizer.Config{Model: resolved.model})
	if counterError != nil {
		return counterError
	}

	preamble, promptError := prompt.Load(rootDirectory, resolved.promptType)
	if promptError != nil {
		return promptError
	}

	result, runError := collect.Run(command.Context(), collect.Options{
		Root: rootDirectory,
		Exclusions: collect.ExclusionInputs{
			GitignoreLines:    gitignoreLines,
			UserPatterns:      resolved.exclusionPatterns,
			IncludeTests:      resolved.includeTests,
			IncludeSelf:       resolved.dogfood,
			IncludeStructural: resolved.includeStructural,
			OutputFileName:    filepath.Base(resolved.outputFile),
		},
		TokenLimit:         resolved.tokenLimit,
		Preamble:           preamble,
		Counter:            tokenCounter,
		StalenessThreshold: time.Duration(resolved.stalenessDays) * hoursPerDay * time.Hour,
	})
	if runError != nil {
		return runError
	}

	outputPath := resolveOutputPath(rootDirectory, resolved.outputFile)
	if writeError := writeDocument(outputPath, result.Document); writeError != nil {
		return writeError
	}

	if !resolved.noClipboard {
		if copyError := clipboard.NewService().Copy(result.Document); copyError != nil {
			fmt.Fprintf(os.Stderr, warningClipboardFormat, copyError)
		}
	}

	printSummary(result, outputPath, !resolved.noClipboard)
	return nil
}

// applyConfiguration overlays configuration-file defaults onto flags the user
// did not set explicitly.
func applyConfiguration(command *cobra.Command, options collectOptions, configuration config.CollectConfiguration) collectOptions {
	resolved := options
	flags := command.Flags()

	if !flags.Changed(tokenLimitFlagName) && configuration.TokenLimit != nil {
		resolved.tokenLimit = *configuration.TokenLimit
	}
	if len(configuration.Exclude) > 0 {
		resolved.exclusionPatterns = append(append([]string{}, configuration.Exclude...), resolved.exclusionPatterns...)
	}
	if !flags.Changed(includeTestsFlagName) && configuration.IncludeTests != nil {
		resolved.includeTests = *configuration.IncludeTests
	}
	if !flags.Changed(includeStructuralFlagName) && configuration.IncludeStructural != nil {
		resolved.includeStructural = *configuration.IncludeStructural
	}
	if !flags.Changed(dogfoodFlagName) && configuration.Dogfood != nil {
		resolved.dogfood = *configuration.Dogfood
	}
	if !flags.Changed(outputFileFlagName) && configuration.OutputFile != "" {
		resolved.outputFile = configuration.OutputFile
	}
	if !flags.Changed(promptFlagName) && configuration.Prompt != "" {
		resolved.promptType = configuration.Prompt
	}
	if !flags.Changed(modelFlagName) && configuration.Model != "" {
		resolved.model = configuration.Model
	}
	if !flags.Changed(noClipboardFlagName) && configuration.Clipboard != nil {
		resolved.noClipboard = !*configuration.Clipboard
	}
	if !flags.Changed(stalenessDaysFlagName) && configuration.StalenessDays != nil {
		resolved.stalenessDays = *configuration.StalenessDays
	}
	return resolved
}

// resolveOutputPath places relative output files under the project's
// .codesight directory so prior output never feeds a later collection.
func resolveOutputPath(rootDirectory, outputFile string) string {
	if filepath.IsAbs(outputFile) {
		return outputFile
	}
	normalized := filepath.ToSlash(outputFile)
	if strings.HasPrefix(normalized, utils.WorkingDirectoryName+"/") {
		return filepath.Join(rootDirectory, filepath.FromSlash(normalized))
	}
	return filepath.Join(rootDirectory, utils.WorkingDirectoryName, filepath.FromSlash(normalized))
}

// writeDocument creates the output directory on demand and writes the document.
func writeDocument(outputPath, document string) error {
	if directoryError := os.MkdirAll(filepath.Dir(outputPath), 0o755); directoryError != nil {
		return fmt.Errorf("create output directory for %s: %w", outputPath, directoryError)
	}
	if writeError := os.WriteFile(outputPath, []byte(document), 0o644); writeError != nil {
		return fmt.Errorf("write output to %s: %w", outputPath, writeError)
	}
	return nil
}

// printSummary reports the run outcome to the user.
func printSummary(result collect.Result, outputPath string, copiedToClipboard bool) {
	successColor := color.New(color.FgGreen)
	detailColor := color.New(color.FgCyan)
	warningColor := color.New(color.FgYellow)

	successColor.Printf("CodeSight: processed %s files (%s tokens)\n",
		humanize.Comma(int64(result.Summary.FilesConsidered)),
		humanize.Comma(int64(result.Summary.TokensUsed)),
	)
	detailColor.Printf("  included %d, truncated %d, skipped %d\n",
		result.Summary.FilesIncluded,
		result.Summary.FilesTruncated,
		result.Summary.FilesSkipped,
	)
	if len(result.Skipped) > 0 {
		warningColor.Printf(warningSkippedEntriesLine, len(result.Skipped))
	}
	fmt.Printf("Output saved to %s (%s)\n", outputPath, utils.FormatFileSize(int64(len(result.Document))))
	if copiedToClipboard {
		fmt.Println("Content copied to clipboard!")
	}
}
