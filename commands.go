package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type cliFlags struct {
	configFile string
	logLevel   string
	verbosity  int
	force      bool
	makePublic bool
	prefix     string
}

// app bundles everything a command needs once the config is loaded.
type app struct {
	config    AppConfig
	container Container
	filter    *PathFilter
	cache     *BoltCache
	progress  io.Writer
}

func (a *app) Close() {
	if a.cache != nil {
		if closeErr := a.cache.Close(); closeErr != nil {
			log.Warn(fmt.Sprintf("Closing metadata cache: %s", closeErr))
		}
	}
}

func (a *app) metadataCache() MetadataCache {
	if a.cache == nil {
		return nil
	}
	return a.cache
}

func newRootCommand() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:           "treesync",
		Short:         "Synchronize a local directory tree with an object storage container",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, levelErr := log.ParseLevel(flags.logLevel)
			if levelErr != nil {
				return levelErr
			}
			log.SetLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "configfile", "c", "", "Configuration File Path")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVarP(&flags.verbosity, "verbosity", "v", -1, "0 silent, 1 progress, 2 also list skipped files; overrides the config")
	rootCmd.PersistentFlags().BoolVar(&flags.makePublic, "make-public", false, "Make the container public if it is not")
	_ = rootCmd.MarkPersistentFlagRequired("configfile")

	rootCmd.AddCommand(
		newUploadCommand(flags),
		newDownloadCommand(flags),
		newCheckCommand(flags),
		newScheduleCommand(flags),
		newConfigCommand(flags),
	)
	return rootCmd
}

func loadApp(ctx context.Context, flags *cliFlags) (*app, error) {
	appConfig, configErr := LoadConfig(flags.configFile)
	if configErr != nil {
		return nil, configErr
	}
	if flags.verbosity >= 0 {
		verbosity := flags.verbosity
		appConfig.Verbosity = &verbosity
	}
	if flags.makePublic {
		appConfig.MakePublic = true
	}

	filter, filterErr := NewPathFilter(appConfig.IgnoreRules())
	if filterErr != nil {
		return nil, filterErr
	}

	container, containerErr := appConfig.ContainerFromConfig(ctx)
	if containerErr != nil {
		return nil, containerErr
	}

	a := &app{config: appConfig, container: container, filter: filter, progress: os.Stdout}
	if appConfig.CachePath != "" {
		cache, cacheErr := OpenBoltCache(appConfig.CachePath)
		if cacheErr != nil {
			return nil, cacheErr
		}
		a.cache = cache
	}
	return a, nil
}

func (a *app) handler() (*SyncHandler, error) {
	var notifier Notifier
	if a.config.Notify.ID != "" {
		snsNotifier, notifyErr := NewSNSNotifier(a.config)
		if notifyErr != nil {
			return nil, notifyErr
		}
		notifier = snsNotifier
	}
	return NewSyncHandler(a.container, a.config, a.filter, notifier, a.metadataCache(), a.progress), nil
}

func newUploadCommand(flags *cliFlags) *cobra.Command {
	var dropPrefix string
	cmd := &cobra.Command{
		Use:   "upload [directory...]",
		Short: "Upload changed files; without arguments, run the configured upload jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, loadErr := loadApp(ctx, flags)
			if loadErr != nil {
				return loadErr
			}
			defer a.Close()

			handler, handlerErr := a.handler()
			if handlerErr != nil {
				return handlerErr
			}
			if _, publicErr := CheckPublic(ctx, a.container, a.config.MakePublic); publicErr != nil {
				return publicErr
			}

			jobs := a.config.Upload
			if len(args) > 0 {
				jobs = make([]UploadConfig, 0, len(args))
				for _, dir := range args {
					jobs = append(jobs, UploadConfig{SourceFolder: dir, DropRemotePrefix: dropPrefix})
				}
			}

			var total TransferStats
			for _, job := range jobs {
				job.Force = job.Force || flags.force
				stats, uploadErr := handler.RunUpload(ctx, job)
				total.Add(stats)
				if uploadErr != nil {
					return uploadErr
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d files, %d bytes\n", total.Count, total.Bytes)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Upload every file, changed or not")
	cmd.Flags().StringVar(&dropPrefix, "drop-prefix", "", "Local path prefix stripped from remote names (default: the directory)")
	return cmd
}

func newDownloadCommand(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [directory]",
		Short: "Download missing or changed objects; without arguments, run the configured download jobs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, loadErr := loadApp(ctx, flags)
			if loadErr != nil {
				return loadErr
			}
			defer a.Close()

			handler, handlerErr := a.handler()
			if handlerErr != nil {
				return handlerErr
			}

			jobs := a.config.Download
			if len(args) == 1 {
				jobs = []DownloadConfig{{DestinationFolder: args[0], Prefix: flags.prefix}}
			}

			var total TransferStats
			for _, job := range jobs {
				job.Force = job.Force || flags.force
				stats, downloadErr := handler.RunDownload(ctx, job)
				total.Add(stats)
				if downloadErr != nil {
					return downloadErr
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d files, %d bytes\n", total.Count, total.Bytes)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Download every object, changed or not")
	cmd.Flags().StringVar(&flags.prefix, "prefix", "", "Only download objects whose name starts with this prefix")
	return cmd
}

func newCheckCommand(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the container is public and the media URL points at it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, loadErr := loadApp(ctx, flags)
			if loadErr != nil {
				return loadErr
			}
			defer a.Close()

			public, publicErr := CheckPublic(ctx, a.container, a.config.MakePublic)
			if publicErr != nil {
				return publicErr
			}
			uriOK := a.config.MediaURL == "" || CheckURI(a.container, a.config.MediaURL)
			fmt.Fprintf(cmd.OutOrStdout(), "public: %t\npublic uri: %s\nmedia url ok: %t\n", public, a.container.PublicURI(), uriOK)
			return nil
		},
	}
}

func newScheduleCommand(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the configured jobs every interval minutes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, loadErr := loadApp(ctx, flags)
			if loadErr != nil {
				return loadErr
			}
			defer a.Close()

			handler, handlerErr := a.handler()
			if handlerErr != nil {
				return handlerErr
			}
			scheduler, schedErr := NewSyncScheduler(ctx, handler, time.Duration(a.config.Interval)*time.Minute)
			if schedErr != nil {
				return schedErr
			}
			log.Info(fmt.Sprintf("Syncing %s every %d minutes", a.container.Name(), a.config.Interval))
			scheduler.StartBlocking()
			return nil
		},
	}
}

func newConfigCommand(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, configErr := LoadConfig(flags.configFile)
			if configErr != nil {
				return configErr
			}
			description, describeErr := appConfig.Describe()
			if describeErr != nil {
				return describeErr
			}
			fmt.Fprint(cmd.OutOrStdout(), description)
			return nil
		},
	}
}
