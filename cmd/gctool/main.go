package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/lemmi/glubblog"
	"github.com/lemmi/glubblog/backend"
	"github.com/lemmi/glubblog/backend/fsbackend"
	"github.com/lemmi/glubblog/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cfg = config.FromEnv()

var rootCmd = &cobra.Command{
	Use:           "gctool",
	Short:         "Manage and build blog posts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.SetupLog()
	},
}

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a post in a content tree",
	Args:  cobra.ExactArgs(1),
	RunE:  newPost,
}

var slugsCmd = &cobra.Command{
	Use:   "slugs",
	Short: "List the slugs known to the backend",
	Args:  cobra.NoArgs,
	RunE:  listSlugs,
}

var buildCmd = &cobra.Command{
	Use:   "build [outdir]",
	Short: "Render every post to static html",
	Args:  cobra.ExactArgs(1),
	RunE:  build,
}

var (
	author   string
	summary  string
	slugFlag string
	simulate bool
	edit     bool
)

func init() {
	cfg.Flags(rootCmd.PersistentFlags())

	newCmd.Flags().StringVar(&author, "author", "", "Set the author id")
	newCmd.Flags().StringVar(&summary, "summary", "", "Set the summary")
	newCmd.Flags().StringVar(&slugFlag, "slug", "", "Set the slug, derived from the title by default")
	newCmd.Flags().BoolVarP(&simulate, "simulate", "n", false, "Only show the result")
	newCmd.Flags().BoolVarP(&edit, "edit", "e", false, "Open vim to edit the files")

	rootCmd.AddCommand(newCmd, slugsCmd, buildCmd)
}

func newPost(cmd *cobra.Command, args []string) error {
	title := args[0]
	slug := slugFlag
	if slug == "" {
		slug = glubblog.Slugify(title)
	}
	if !glubblog.ValidSlug(slug) {
		return errors.Errorf("invalid slug %q", slug)
	}

	b, err := json.MarshalIndent(fsbackend.PostMeta{
		Title:   title,
		Summary: summary,
		Author:  author,
	}, "", "\t")
	if err != nil {
		return err
	}

	dirname := filepath.Join(cfg.Prefix, fsbackend.PostsDir, slug)
	if !simulate {
		if err := os.MkdirAll(dirname, 0755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dirname, fsbackend.PostFile), b, 0644); err != nil {
			return err
		}
		article := fmt.Sprintf("![%s](/static/images/%s/0001.jpg)\n", title, slug)
		if err := os.WriteFile(filepath.Join(dirname, fsbackend.ArticleFile), []byte(article), 0644); err != nil {
			return err
		}
	}
	color.New(color.Bold).Println(dirname)
	fmt.Println(string(b))

	if edit && !simulate {
		vimpath, err := exec.LookPath("vim")
		if err != nil {
			return err
		}
		c := exec.Command(
			vimpath,
			"-O",
			filepath.Join(dirname, fsbackend.ArticleFile),
			filepath.Join(dirname, fsbackend.PostFile))
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	}
	return nil
}

func listSlugs(cmd *cobra.Command, args []string) error {
	b, closer, err := cfg.OpenBackend()
	if err != nil {
		return err
	}
	defer closer.Close()

	slugs, err := b.Slugs(cmd.Context())
	if err != nil {
		return err
	}
	for _, s := range slugs {
		fmt.Println(s)
	}
	if c, ok := b.(backend.CIDer); ok {
		color.New(color.Faint).Printf("revision %s\n", c.CID())
	}
	return nil
}

func build(cmd *cobra.Command, args []string) error {
	b, closer, err := cfg.OpenBackend()
	if err != nil {
		return err
	}
	defer closer.Close()

	pager, err := glubblog.NewPager(b, cfg.SiteFS(), cfg.Images(), cfg.Unsafe)
	if err != nil {
		return err
	}
	written, err := glubblog.Generate(cmd.Context(), b, pager, args[0])
	for _, s := range written {
		color.Green("  %s", filepath.Join(args[0], "blog", s, "index.html"))
	}
	if err != nil {
		return err
	}
	fmt.Printf("%d posts written\n", len(written))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
