package main

import (
	"github.com/DMarby/image-api/internal/image"
	"github.com/DMarby/image-api/internal/image/watermark"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert an image to another format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := outputOptions()
		if err != nil {
			return err
		}

		return runImage(cmd, args[0], "", &image.ConvertTask{Output: out})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Compare the size of an image encoded in every supported format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args[0], &image.InfoTask{Quality: quality})
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <input>",
	Short: "Print the structure and EXIF tags of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args[0], &image.MetadataTask{})
	},
}

var (
	width               int
	height              int
	percentage          float64
	maintainAspectRatio bool
)

var resizeCmd = &cobra.Command{
	Use:   "resize <input>",
	Short: "Resize an image by dimensions or percentage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := outputOptions()
		if err != nil {
			return err
		}

		opts := image.ResizeOptions{MaintainAspectRatio: maintainAspectRatio}
		if cmd.Flags().Changed("width") {
			opts.Width = &width
		}
		if cmd.Flags().Changed("height") {
			opts.Height = &height
		}
		if cmd.Flags().Changed("percentage") {
			opts.Percentage = &percentage
		}

		return runImage(cmd, args[0], "_resized", &image.ResizeTask{Output: out, Options: opts})
	},
}

var rect image.Rectangle

var cropCmd = &cobra.Command{
	Use:   "crop <input>",
	Short: "Crop an image to a rectangle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := outputOptions()
		if err != nil {
			return err
		}

		return runImage(cmd, args[0], "_cropped", &image.CropTask{Output: out, Rectangle: rect})
	},
}

var (
	text     string
	opacity  float64
	density  int
	fontSize int
	hexColor string
)

var watermarkCmd = &cobra.Command{
	Use:   "watermark <input>",
	Short: "Tile diagonal text across an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := outputOptions()
		if err != nil {
			return err
		}

		c, err := watermark.ParseColor(hexColor)
		if err != nil {
			return err
		}

		spec := image.WatermarkSpec{
			Text:     text,
			Opacity:  opacity,
			Density:  density,
			FontSize: fontSize,
			Color:    c,
		}

		return runImage(cmd, args[0], "_watermarked", &image.WatermarkTask{Output: out, Spec: spec})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{convertCmd, resizeCmd, cropCmd, watermarkCmd} {
		addOutputFlags(cmd)
	}

	infoCmd.Flags().IntVarP(&quality, "quality", "q", image.DefaultQuality, "quality to encode each format with (1-100)")

	resizeCmd.Flags().IntVar(&width, "width", 0, "target width in pixels")
	resizeCmd.Flags().IntVar(&height, "height", 0, "target height in pixels")
	resizeCmd.Flags().Float64Var(&percentage, "percentage", 0, "scale both dimensions by this percentage")
	resizeCmd.Flags().BoolVar(&maintainAspectRatio, "maintain-aspect-ratio", true, "fit within width and height instead of stretching")

	cropCmd.Flags().IntVar(&rect.Left, "left", 0, "left edge, inclusive")
	cropCmd.Flags().IntVar(&rect.Top, "top", 0, "top edge, inclusive")
	cropCmd.Flags().IntVar(&rect.Right, "right", 0, "right edge, exclusive")
	cropCmd.Flags().IntVar(&rect.Bottom, "bottom", 0, "bottom edge, exclusive")
	for _, name := range []string{"left", "top", "right", "bottom"} {
		cropCmd.MarkFlagRequired(name)
	}

	watermarkCmd.Flags().StringVarP(&text, "text", "t", "", "watermark text")
	watermarkCmd.Flags().Float64Var(&opacity, "opacity", image.DefaultOpacity, "text opacity (0-1)")
	watermarkCmd.Flags().IntVar(&density, "density", image.DefaultDensity, "repetitions along the diagonal (1-50)")
	watermarkCmd.Flags().IntVar(&fontSize, "font-size", 0, "font size in pixels, derived from the image size when 0")
	watermarkCmd.Flags().StringVar(&hexColor, "color", "", "text colour as hex, black when empty")
	watermarkCmd.MarkFlagRequired("text")

	rootCmd.AddCommand(convertCmd, infoCmd, metadataCmd, resizeCmd, cropCmd, watermarkCmd)
}
