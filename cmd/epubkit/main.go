package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/yomu/epubkit/internal/epub"
)

var rootCmd = &cobra.Command{
	Use:   "epubkit",
	Short: "Inspect and extract content from EPUB files",
	Long: `epubkit opens EPUB files and exposes the package engine from the
command line: book metadata, the reading-order spine, the table of
contents, segmented chapters, rendered chapter content, and the cover
image.`,
	SilenceUsage: true,
}

var infoCmd = &cobra.Command{
	Use:   "info <file.epub>",
	Short: "Print book metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := epub.Open(args[0])
		if err != nil {
			return err
		}
		defer book.Close()

		md := book.Metadata()
		fmt.Printf("Title:       %s\n", md.Title)
		fmt.Printf("Author:      %s\n", md.Author)
		fmt.Printf("Language:    %s\n", md.Language)
		fmt.Printf("Date:        %s\n", md.Date)
		fmt.Printf("Identifier:  %s\n", md.Identifier)
		if md.Contributor != "" {
			fmt.Printf("Contributor: %s\n", md.Contributor)
		}
		for _, w := range book.Warnings() {
			log.Printf("warning: %s", w)
		}
		return nil
	},
}

var spineCmd = &cobra.Command{
	Use:   "spine <file.epub>",
	Short: "List the reading-order spine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := epub.Open(args[0])
		if err != nil {
			return err
		}
		defer book.Close()

		for i, item := range book.Spine() {
			fmt.Printf("%3d  %-20s %s\n", i, item.ID, item.Href)
		}
		return nil
	},
}

var tocCmd = &cobra.Command{
	Use:   "toc <file.epub>",
	Short: "List the table of contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := epub.Open(args[0])
		if err != nil {
			return err
		}
		defer book.Close()

		if err := book.TocErr(); err != nil {
			return err
		}
		for i, entry := range book.Toc() {
			fmt.Printf("%3d  %-40s %s\n", i, entry.Title, entry.Href)
		}
		return nil
	},
}

var chaptersCmd = &cobra.Command{
	Use:   "chapters <file.epub>",
	Short: "List logical chapters derived from the spine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := epub.Open(args[0])
		if err != nil {
			return err
		}
		defer book.Close()

		for i, ch := range book.Chapters() {
			fmt.Printf("%3d  %s\n", i, ch.Title)
			for _, part := range ch.PartPaths {
				fmt.Printf("       %s\n", part)
			}
		}
		return nil
	},
}

var chapterCmd = &cobra.Command{
	Use:   "chapter <file.epub>",
	Short: "Extract one chapter by spine index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, _ := cmd.Flags().GetInt("index")
		inline, _ := cmd.Flags().GetBool("inline")
		fontSize, _ := cmd.Flags().GetInt("font-size")

		book, err := epub.Open(args[0])
		if err != nil {
			return err
		}
		defer book.Close()

		content, err := book.Chapter(index)
		if err != nil {
			return err
		}

		if !inline {
			fmt.Print(content.Markup)
			return nil
		}
		html, err := epub.InlineHTML(content, epub.InlineOptions{FontSize: fontSize})
		if err != nil {
			return err
		}
		fmt.Print(html)
		return nil
	},
}

var coverCmd = &cobra.Command{
	Use:   "cover <file.epub>",
	Short: "Extract the cover image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		width, _ := cmd.Flags().GetInt("width")

		book, err := epub.Open(args[0])
		if err != nil {
			return err
		}
		defer book.Close()

		uri := book.CoverImage()
		if uri == "" {
			return fmt.Errorf("no cover image found")
		}

		if output == "" {
			fmt.Println(uri)
			return nil
		}
		return saveCover(uri, output, width)
	},
}

// saveCover decodes a cover data URI and writes it to disk, optionally
// resized to the given width.
func saveCover(uri, output string, width int) error {
	payload := uri[strings.Index(uri, ",")+1:]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decode cover: %w", err)
	}

	if width <= 0 {
		return os.WriteFile(output, data, 0o644)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode cover image: %w", err)
	}
	thumb := imaging.Resize(src, width, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, output); err != nil {
		return fmt.Errorf("save cover: %w", err)
	}
	return nil
}

func init() {
	chapterCmd.Flags().IntP("index", "i", 0, "Spine index of the chapter")
	chapterCmd.Flags().Bool("inline", false, "Inline resources as data URIs")
	chapterCmd.Flags().Int("font-size", 0, "Inject reader stylesheet with this font size (px)")
	coverCmd.Flags().StringP("output", "o", "", "Write the cover to a file instead of printing the data URI")
	coverCmd.Flags().Int("width", 0, "Resize the saved cover to this width")

	rootCmd.AddCommand(infoCmd, spineCmd, tocCmd, chaptersCmd, chapterCmd, coverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
