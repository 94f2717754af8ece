package main

import (
	"os"
	"strings"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/charlesthegreat77/isoforge/hostfs"
	"github.com/charlesthegreat77/isoforge/iso9660"
)

var (
	inputPath    string
	outputISO    string
	hiddenFiles  string
	configPath   string
	strictFlag   string
	bootImage    string
	bootPlatform string
	bootMedia    string
)

var rootCmd = &cobra.Command{
	Use:   "goiso9660 -i <input> -o <output.iso>",
	Short: "Build an ECMA-119 (ISO 9660) image from a directory tree",
	Long: `goiso9660 builds an ECMA-119 optical media image from a host directory,
with optional Joliet and Rock Ridge extensions and an El Torito boot catalog.`,
	RunE: run,
}

func init() {
	// accept underscore spellings (e.g. --boot_image) alongside the
	// canonical dashed flag names
	rootCmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "", "directory to build the image from (required)")
	rootCmd.Flags().StringVarP(&outputISO, "output", "o", "output.iso", "output image path")
	rootCmd.Flags().StringVarP(&hiddenFiles, "hidden", "H", "", "comma-separated image paths to mark hidden")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML file overriding volume identifiers and extension toggles")
	rootCmd.Flags().StringVar(&strictFlag, "strictness", "default", "one of: strict, default, compatible")
	rootCmd.Flags().StringVar(&bootImage, "boot-image", "", "image-relative path of an El Torito boot image")
	rootCmd.Flags().StringVar(&bootPlatform, "boot-platform", "x86", "one of: x86, ppc, mac, efi")
	rootCmd.Flags().StringVar(&bootMedia, "boot-media", "noemu", "one of: noemu, floppy1200, floppy1440, floppy2880, harddisk")
	rootCmd.MarkFlagRequired("input")
}

func main() {
	defer func() {
		if state := recover(); state != nil {
			err, ok := state.(error)
			if !ok {
				os.Exit(1)
			}
			log.PrintError(log.Wrap(err))
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	strictness, err := parseStrictness(strictFlag)
	if err != nil {
		return err
	}

	opts := iso9660.DefaultOptions()
	opts.Strictness = strictness
	if configPath != "" {
		if err := loadFormatOptions(configPath, opts); err != nil {
			return log.Wrap(err)
		}
	}

	filesIn, err := hostfs.NewDirInput(inputPath)
	if err != nil {
		return log.Wrap(err)
	}
	opts.Files = filesIn

	if bootImage != "" {
		platform, err := parseBootPlatform(bootPlatform)
		if err != nil {
			return err
		}
		media, err := parseBootMedia(bootMedia)
		if err != nil {
			return err
		}
		opts.BootEntries = []iso9660.BootEntry{{
			Platform:      platform,
			Media:         media,
			BootImagePath: bootImage,
		}}
	}

	builder := iso9660.NewBuilder(opts)
	if err := builder.Scan(); err != nil {
		return log.Wrap(err)
	}
	builder.MarkHidden(splitAndTrim(hiddenFiles)...)

	cmd.Printf("building image from %q to %q\n", inputPath, outputISO)
	if err := builder.Build(outputISO); err != nil {
		return log.Wrap(err)
	}

	info, err := os.Stat(outputISO)
	if err != nil {
		return log.Wrap(err)
	}
	cmd.Printf("wrote %s (%s)\n", outputISO, humanize.Bytes(uint64(info.Size())))
	return nil
}

func splitAndTrim(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseStrictness(s string) (iso9660.Strictness, error) {
	switch strings.ToLower(s) {
	case "strict":
		return iso9660.Strict, nil
	case "", "default":
		return iso9660.Default, nil
	case "compatible":
		return iso9660.Compatible, nil
	default:
		return 0, log.Errorf("unknown strictness %q", s)
	}
}

func parseBootPlatform(s string) (iso9660.BootPlatform, error) {
	switch strings.ToLower(s) {
	case "x86":
		return iso9660.BootPlatformX86, nil
	case "ppc":
		return iso9660.BootPlatformPPC, nil
	case "mac":
		return iso9660.BootPlatformMac, nil
	case "efi":
		return iso9660.BootPlatformEFI, nil
	default:
		return 0, log.Errorf("unknown boot platform %q", s)
	}
}

func parseBootMedia(s string) (iso9660.BootMedia, error) {
	switch strings.ToLower(s) {
	case "noemu":
		return iso9660.BootMediaNoEmulation, nil
	case "floppy1200":
		return iso9660.BootMediaFloppy1200KB, nil
	case "floppy1440":
		return iso9660.BootMediaFloppy1440KB, nil
	case "floppy2880":
		return iso9660.BootMediaFloppy2880KB, nil
	case "harddisk":
		return iso9660.BootMediaHardDisk, nil
	default:
		return 0, log.Errorf("unknown boot media %q", s)
	}
}
