package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/ddgs/pkg/ddgs"
)

// searchFlags are shared by the paginated search commands.
type searchFlags struct {
	region     string
	safesearch string
	timelimit  string
	max        int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.region, "region", "r", string(ddgs.WorldWide), "region code, e.g. us-en, de-de")
	cmd.Flags().StringVarP(&f.safesearch, "safesearch", "s", string(ddgs.SafeSearchModerate), "on, moderate or off")
	cmd.Flags().StringVarP(&f.timelimit, "timelimit", "t", "", "restrict results by age")
	cmd.Flags().IntVarP(&f.max, "max", "m", 0, "maximum results (0 = first page only)")
}

var (
	textFlags   searchFlags
	textBackend string

	imagesFlags                                                 searchFlags
	imageSize, imageColor, imageType, imageLayout, imageLicense string

	videosFlags                                  searchFlags
	videoResolution, videoDuration, videoLicense string

	newsFlags searchFlags
)

var textCmd = &cobra.Command{
	Use:   "text QUERY...",
	Short: "Web search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		results, err := client.Text(cmd.Context(), query(args), ddgs.TextOptions{
			Region:     ddgs.Region(textFlags.region),
			SafeSearch: ddgs.SafeSearch(textFlags.safesearch),
			TimeLimit:  ddgs.TimeLimit(textFlags.timelimit),
			Backend:    ddgs.Backend(textBackend),
			MaxResults: textFlags.max,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), results)
	},
}

var imagesCmd = &cobra.Command{
	Use:   "images QUERY...",
	Short: "Image search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		results, err := client.Images(cmd.Context(), query(args), ddgs.ImagesOptions{
			Region:     ddgs.Region(imagesFlags.region),
			SafeSearch: ddgs.SafeSearch(imagesFlags.safesearch),
			TimeLimit:  ddgs.TimeLimit(imagesFlags.timelimit),
			Size:       imageSize,
			Color:      imageColor,
			Type:       imageType,
			Layout:     imageLayout,
			License:    imageLicense,
			MaxResults: imagesFlags.max,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), results)
	},
}

var videosCmd = &cobra.Command{
	Use:   "videos QUERY...",
	Short: "Video search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		results, err := client.Videos(cmd.Context(), query(args), ddgs.VideosOptions{
			Region:     ddgs.Region(videosFlags.region),
			SafeSearch: ddgs.SafeSearch(videosFlags.safesearch),
			TimeLimit:  ddgs.TimeLimit(videosFlags.timelimit),
			Resolution: videoResolution,
			Duration:   videoDuration,
			License:    videoLicense,
			MaxResults: videosFlags.max,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), results)
	},
}

var newsCmd = &cobra.Command{
	Use:   "news QUERY...",
	Short: "News search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		results, err := client.News(cmd.Context(), query(args), ddgs.NewsOptions{
			Region:     ddgs.Region(newsFlags.region),
			SafeSearch: ddgs.SafeSearch(newsFlags.safesearch),
			TimeLimit:  ddgs.TimeLimit(newsFlags.timelimit),
			MaxResults: newsFlags.max,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), results)
	},
}

func init() {
	textFlags.register(textCmd)
	textCmd.Flags().StringVarP(&textBackend, "backend", "b", string(ddgs.BackendAPI), "api, html or lite")

	imagesFlags.register(imagesCmd)
	imagesCmd.Flags().StringVar(&imageSize, "size", "", "Small, Medium, Large or Wallpaper")
	imagesCmd.Flags().StringVar(&imageColor, "color", "", "color, Monochrome or a color name")
	imagesCmd.Flags().StringVar(&imageType, "type", "", "photo, clipart, gif, transparent or line")
	imagesCmd.Flags().StringVar(&imageLayout, "layout", "", "Square, Tall or Wide")
	imagesCmd.Flags().StringVar(&imageLicense, "license", "", "any, Public, Share, ShareCommercially, Modify or ModifyCommercially")

	videosFlags.register(videosCmd)
	videosCmd.Flags().StringVar(&videoResolution, "resolution", "", "high or standart")
	videosCmd.Flags().StringVar(&videoDuration, "duration", "", "short, medium or long")
	videosCmd.Flags().StringVar(&videoLicense, "license", "", "creativeCommon or youtube")

	newsFlags.register(newsCmd)

	rootCmd.AddCommand(textCmd, imagesCmd, videosCmd, newsCmd)
}

func query(args []string) string {
	return strings.Join(args, " ")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
