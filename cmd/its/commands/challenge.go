package commands

import (
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

// openAudio opens the --audio file, or returns nil when the flag is unset.
func openAudio(cmd *cobra.Command) (io.ReadCloser, error) {
	path, _ := cmd.Flags().GetString("audio")
	if path == "" {
		return nil, nil
	}
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}
	return f, nil
}

var speechChallengeCmd = &cobra.Command{
	Use:   "speech-challenge",
	Short: "Speech challenge management",
}

var speechChallengeCreateCmd = &cobra.Command{
	Use:   "create <org>",
	Short: "Create a speech challenge",
	Long: `Create a speech challenge, optionally with reference audio.

Examples:
  its speech-challenge create fb --topic "Describe your house"
  its speech-challenge create fb -f challenge.yaml --audio reference.wav`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		var challenge itslanguage.SpeechChallenge
		if getInputFile() != "" {
			if err := loadRequest(getInputFile(), &challenge); err != nil {
				return err
			}
		}
		challenge.OrganisationID = args[0]
		if cmd.Flags().Changed("id") {
			challenge.ID, _ = cmd.Flags().GetString("id")
		}
		if cmd.Flags().Changed("topic") {
			challenge.Topic, _ = cmd.Flags().GetString("topic")
		}

		audio, err := openAudio(cmd)
		if err != nil {
			return err
		}
		var reference io.Reader
		if audio != nil {
			defer audio.Close()
			reference = audio
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).SpeechChallenges.Create(reqCtx, &challenge, reference)
		if err != nil {
			return fmt.Errorf("create speech challenge failed: %w", err)
		}
		return outputResult(resp)
	},
}

var speechChallengeGetCmd = &cobra.Command{
	Use:   "get <org> <id>",
	Short: "Get a speech challenge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).SpeechChallenges.Get(reqCtx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("get speech challenge failed: %w", err)
		}
		return outputResult(resp)
	},
}

var speechChallengeListCmd = &cobra.Command{
	Use:   "list <org>",
	Short: "List speech challenges of an organisation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).SpeechChallenges.List(reqCtx, args[0])
		if err != nil {
			return fmt.Errorf("list speech challenges failed: %w", err)
		}
		return outputResult(resp, "id", "topic", "referenceAudioUrl")
	},
}

var pronunciationChallengeCmd = &cobra.Command{
	Use:   "pronunciation-challenge",
	Short: "Pronunciation challenge management",
}

var pronunciationChallengeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a pronunciation challenge",
	Long: `Create a pronunciation challenge from a transcription and reference audio.

Examples:
  its pronunciation-challenge create --transcription "hello world" --audio hello.wav`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		var challenge itslanguage.PronunciationChallenge
		if getInputFile() != "" {
			if err := loadRequest(getInputFile(), &challenge); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("id") {
			challenge.ID, _ = cmd.Flags().GetString("id")
		}
		if cmd.Flags().Changed("transcription") {
			challenge.Transcription, _ = cmd.Flags().GetString("transcription")
		}

		audio, err := openAudio(cmd)
		if err != nil {
			return err
		}
		if audio == nil {
			return fmt.Errorf("--audio is required")
		}
		defer audio.Close()

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).PronunciationChallenges.Create(reqCtx, &challenge, audio)
		if err != nil {
			return fmt.Errorf("create pronunciation challenge failed: %w", err)
		}
		return outputResult(resp)
	},
}

var pronunciationChallengeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a pronunciation challenge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).PronunciationChallenges.Get(reqCtx, args[0])
		if err != nil {
			return fmt.Errorf("get pronunciation challenge failed: %w", err)
		}
		return outputResult(resp)
	},
}

var pronunciationChallengeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pronunciation challenges",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).PronunciationChallenges.List(reqCtx)
		if err != nil {
			return fmt.Errorf("list pronunciation challenges failed: %w", err)
		}
		return outputResult(resp, "id", "transcription", "status")
	},
}

var pronunciationChallengeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a pronunciation challenge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		if err := createClient(ctx).PronunciationChallenges.Delete(reqCtx, args[0]); err != nil {
			return fmt.Errorf("delete pronunciation challenge failed: %w", err)
		}
		printSuccess("Pronunciation challenge %q deleted", args[0])
		return nil
	},
}

var choiceChallengeCmd = &cobra.Command{
	Use:   "choice-challenge",
	Short: "Choice challenge management",
}

var choiceChallengeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a choice challenge",
	Long: `Create a choice challenge.

Example request file (choice.yaml):
  question: Which fruit is yellow?
  choices:
    - banana
    - apple

Examples:
  its choice-challenge create -f choice.yaml
  its choice-challenge create --question "Yes or no?" --choice yes --choice no`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		var challenge itslanguage.ChoiceChallenge
		if getInputFile() != "" {
			if err := loadRequest(getInputFile(), &challenge); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("id") {
			challenge.ID, _ = cmd.Flags().GetString("id")
		}
		if cmd.Flags().Changed("question") {
			challenge.Question, _ = cmd.Flags().GetString("question")
		}
		if cmd.Flags().Changed("choice") {
			challenge.Choices, _ = cmd.Flags().GetStringArray("choice")
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).ChoiceChallenges.Create(reqCtx, &challenge)
		if err != nil {
			return fmt.Errorf("create choice challenge failed: %w", err)
		}
		return outputResult(resp)
	},
}

var choiceChallengeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a choice challenge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).ChoiceChallenges.Get(reqCtx, args[0])
		if err != nil {
			return fmt.Errorf("get choice challenge failed: %w", err)
		}
		return outputResult(resp)
	},
}

var choiceChallengeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List choice challenges",
	Long: `List choice challenges.

Filters are passed to the API as query parameters.

Examples:
  its choice-challenge list
  its choice-challenge list --filter status=prepared`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		filterMap, _ := cmd.Flags().GetStringToString("filter")
		filters := url.Values{}
		for k, v := range filterMap {
			filters.Set(k, v)
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).ChoiceChallenges.List(reqCtx, filters)
		if err != nil {
			return fmt.Errorf("list choice challenges failed: %w", err)
		}
		return outputResult(resp, "id", "question", "choices", "status")
	},
}

func init() {
	speechChallengeCreateCmd.Flags().String("id", "", "challenge id")
	speechChallengeCreateCmd.Flags().String("topic", "", "challenge topic")
	speechChallengeCreateCmd.Flags().String("audio", "", "reference audio file (- for stdin)")
	speechChallengeCmd.AddCommand(speechChallengeCreateCmd)
	speechChallengeCmd.AddCommand(speechChallengeGetCmd)
	speechChallengeCmd.AddCommand(speechChallengeListCmd)

	pronunciationChallengeCreateCmd.Flags().String("id", "", "challenge id")
	pronunciationChallengeCreateCmd.Flags().String("transcription", "", "reference transcription")
	pronunciationChallengeCreateCmd.Flags().String("audio", "", "reference audio file (- for stdin)")
	pronunciationChallengeCmd.AddCommand(pronunciationChallengeCreateCmd)
	pronunciationChallengeCmd.AddCommand(pronunciationChallengeGetCmd)
	pronunciationChallengeCmd.AddCommand(pronunciationChallengeListCmd)
	pronunciationChallengeCmd.AddCommand(pronunciationChallengeDeleteCmd)

	choiceChallengeCreateCmd.Flags().String("id", "", "challenge id")
	choiceChallengeCreateCmd.Flags().String("question", "", "question text")
	choiceChallengeCreateCmd.Flags().StringArray("choice", nil, "possible answer (repeatable)")
	choiceChallengeListCmd.Flags().StringToString("filter", nil, "query filter key=value (repeatable)")
	choiceChallengeCmd.AddCommand(choiceChallengeCreateCmd)
	choiceChallengeCmd.AddCommand(choiceChallengeGetCmd)
	choiceChallengeCmd.AddCommand(choiceChallengeListCmd)
}
