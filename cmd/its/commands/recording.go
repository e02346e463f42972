package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joggienl/itslanguage-go/pkg/cli"
	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
	"github.com/joggienl/itslanguage-go/pkg/recorder"
	"github.com/joggienl/itslanguage-go/pkg/storage"
)

var recordingCmd = &cobra.Command{
	Use:   "recording",
	Short: "Speech recording service",
	Long: `Speech recording service.

Get and download recordings of speech challenges, and stream new recordings
from WAV files over the websocket API.`,
}

var recordingGetCmd = &cobra.Command{
	Use:   "get <org> <challenge> <id>",
	Short: "Get a recording",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).SpeechRecordings.Get(reqCtx, args[0], args[1], args[2])
		if err != nil {
			return fmt.Errorf("get recording failed: %w", err)
		}
		return outputResult(resp)
	},
}

var recordingListCmd = &cobra.Command{
	Use:   "list <org> <challenge>",
	Short: "List recordings of a speech challenge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).SpeechRecordings.List(reqCtx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("list recordings failed: %w", err)
		}
		return outputResult(resp, "id", "student", "created", "audioUrl")
	},
}

var recordingDownloadCmd = &cobra.Command{
	Use:   "download <org> <challenge> <id>",
	Short: "Download the audio of a recording",
	Long: `Download the audio of a recording.

The audio is saved as <org>/<challenge>/<id>.wav under --dest, which is a
directory or an s3://bucket/prefix URL. S3 credentials come from the usual
AWS environment (AWS_PROFILE, AWS_REGION, AWS_ENDPOINT_URL_S3, ...).
With -o the audio is written to that file instead.

Examples:
  its recording download fb 4 rec-1 --dest ./audio
  its recording download fb 4 rec-1 --dest s3://recordings/2024
  its recording download fb 4 rec-1 -o answer.wav`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		org, challenge, id := args[0], args[1], args[2]
		skipExisting, _ := cmd.Flags().GetBool("skip-existing")

		var (
			store storage.AudioStore
			name  = path.Join(org, challenge, id+".wav")
		)
		if out := getOutputFile(); out != "" {
			store, err = storage.NewLocal(filepath.Dir(out))
			name = filepath.Base(out)
		} else {
			dest, _ := cmd.Flags().GetString("dest")
			var d storage.Destination
			if d, err = storage.ParseDestination(dest); err == nil {
				store, err = d.Open(context.Background())
			}
		}
		if err != nil {
			return err
		}

		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if skipExisting {
			if ok, err := store.Exists(reqCtx, name); err != nil {
				return err
			} else if ok {
				printInfo("%s already downloaded", name)
				return nil
			}
		}

		client := createClient(ctx)
		rec, err := client.SpeechRecordings.Get(reqCtx, org, challenge, id)
		if err != nil {
			return fmt.Errorf("get recording failed: %w", err)
		}
		body, err := client.SpeechRecordings.DownloadAudio(reqCtx, rec)
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		defer body.Close()

		counter := &countingReader{r: body}
		loc, err := store.Save(reqCtx, name, counter)
		if err != nil {
			return fmt.Errorf("save failed: %w", err)
		}
		printSuccess("Saved %s (%s)", loc, cli.FormatBytes(counter.n))
		return nil
	},
}

var recordingStreamCmd = &cobra.Command{
	Use:   "stream <org> <challenge>",
	Short: "Stream a new recording from a WAV file",
	Long: `Stream a new recording of a speech challenge.

The WAV file (or stdin with --audio -) is sent to the backend chunk by chunk
over the websocket API, as a live recording would be. With --realtime the
chunks are paced at the audio's playback rate.

The finished recording is printed and added to the local history.

Examples:
  its recording stream fb 4 --audio answer.wav
  arecord -f S16_LE -r 16000 | its recording stream fb 4 --audio - --realtime`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		audioPath, _ := cmd.Flags().GetString("audio")
		if audioPath == "" {
			return fmt.Errorf("--audio is required")
		}
		realtime, _ := cmd.Flags().GetBool("realtime")
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")

		var audio io.Reader = os.Stdin
		if audioPath != "-" {
			f, err := os.Open(audioPath)
			if err != nil {
				return fmt.Errorf("failed to open audio: %w", err)
			}
			defer f.Close()
			audio = f
		}

		rec, err := recorder.NewStreamRecorder(audio, &recorder.Config{
			ChunkSize: chunkSize,
			Realtime:  realtime,
			Logger:    slog.Default(),
		})
		if err != nil {
			return err
		}
		spec := rec.AudioSpecs()
		slog.Debug("audio", "format", spec.AudioFormat,
			"channels", spec.AudioParameters.Channels,
			"rate", spec.AudioParameters.SampleRate,
			"width", spec.AudioParameters.SampleWidth)

		sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client := createClient(ctx)
		if err := client.Connect(sigCtx); err != nil {
			return err
		}
		defer client.Close()

		challenge := &itslanguage.SpeechChallenge{ID: args[1], OrganisationID: args[0]}
		stream, err := client.SpeechRecordings.StartStreaming(sigCtx, challenge, rec)
		if err != nil {
			return fmt.Errorf("start streaming failed: %w", err)
		}
		rec.Open()

		start := time.Now()
		var result *itslanguage.SpeechRecording
		g, gctx := errgroup.WithContext(sigCtx)
		g.Go(func() error {
			return rec.Record(gctx)
		})
		g.Go(func() error {
			for p := range stream.Progress() {
				slog.Info("recording started", "id", p.ID)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			result, err = stream.Wait(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("streaming failed: %w", err)
		}
		slog.Info("recording finished", "id", result.ID, "took", cli.FormatDuration(time.Since(start)))

		if err := saveHistory(ctx, result); err != nil {
			cli.PrintWarning("recording not added to history: %v", err)
		}
		return outputResult(result)
	},
}

// saveHistory adds a streamed recording to the local history.
func saveHistory(ctx *cli.Context, rec *itslanguage.SpeechRecording) error {
	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	reqCtx, cancel := requestContext()
	defer cancel()
	return store.Put(reqCtx, rec)
}

var recordingHistoryCmd = &cobra.Command{
	Use:   "history [org] [challenge]",
	Short: "List recordings streamed from this machine",
	Long: `List recordings streamed with 'its recording stream'.

Examples:
  its recording history
  its recording history fb 4 --format table
  its recording history fb --query '.[].id'`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		var org, challenge string
		if len(args) > 0 {
			org = args[0]
		}
		if len(args) > 1 {
			challenge = args[1]
		}

		store, err := openHistory(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		reqCtx, cancel := requestContext()
		defer cancel()

		recs := []*itslanguage.SpeechRecording{}
		for rec, err := range store.List(reqCtx, org, challenge) {
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}

		forget, _ := cmd.Flags().GetBool("forget")
		if forget {
			for _, rec := range recs {
				if err := store.Delete(reqCtx, rec.Student.OrganisationID, rec.ChallengeID, rec.ID); err != nil {
					return err
				}
			}
			printSuccess("Removed %d recordings from history", len(recs))
			return nil
		}
		return outputResult(recs, "id", "challenge", "created", "audioUrl")
	},
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func init() {
	recordingDownloadCmd.Flags().String("dest", ".", "directory or s3://bucket/prefix")
	recordingDownloadCmd.Flags().Bool("skip-existing", false, "skip recordings already at the destination")

	recordingStreamCmd.Flags().String("audio", "", "WAV file to stream (- for stdin)")
	recordingStreamCmd.Flags().Bool("realtime", false, "pace chunks at playback rate")
	recordingStreamCmd.Flags().Int("chunk-size", recorder.DefaultChunkSize, "bytes per chunk")

	recordingHistoryCmd.Flags().Bool("forget", false, "remove the listed recordings from history")

	recordingCmd.AddCommand(recordingGetCmd)
	recordingCmd.AddCommand(recordingListCmd)
	recordingCmd.AddCommand(recordingDownloadCmd)
	recordingCmd.AddCommand(recordingStreamCmd)
	recordingCmd.AddCommand(recordingHistoryCmd)
}
