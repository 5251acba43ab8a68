package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/lemmi/glubblog"
	"github.com/lemmi/glubblog/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	cfg       = config.FromEnv()
	prerender bool
)

var rootCmd = &cobra.Command{
	Use:   "gcserver",
	Short: "Serve blog posts from a content backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	cfg.Flags(rootCmd.Flags())
	cfg.ServerFlags(rootCmd.Flags())
	rootCmd.Flags().BoolVar(&prerender, "prerender", true, "render every known post before serving")
}

func serve(ctx context.Context) error {
	defer cfg.SetupLog().Close()

	b, bclose, err := cfg.OpenBackend()
	if err != nil {
		return err
	}
	defer bclose.Close()

	store, sclose, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	defer sclose.Close()

	pager, err := glubblog.NewPager(b, cfg.SiteFS(), cfg.Images(), cfg.Unsafe)
	if err != nil {
		return err
	}
	pages := glubblog.NewRevalidator(pager, store, cfg.Revalidate)

	if prerender {
		slugs, err := b.Slugs(ctx)
		if err != nil {
			return errors.Wrap(err, "Cannot list slugs")
		}
		if err := pages.Prerender(ctx, slugs); err != nil {
			return err
		}
		log.Printf("Prerendered %d posts", len(slugs))
	}

	ln, err := net.Listen(cfg.Network, cfg.Bind)
	if err != nil {
		return err
	}
	defer ln.Close()
	if strings.HasPrefix(cfg.Network, "unix") {
		if err := os.Chmod(cfg.Bind, 0666); err != nil {
			return err
		}
	}

	log.Println("Starting")
	if glubblog.DEBUG {
		log.Println("backend: ", cfg.Backend)
		log.Println("addr: ", cfg.Bind)
		log.Println("network: ", cfg.Network)
		log.Println("revalidate: ", cfg.Revalidate)
		log.Println("on-demand revalidation: ", cfg.RevalidateSecret != "")
	}
	site := glubblog.NewSite(pages, cfg.SiteFS(), cfg.RevalidateSecret)
	return http.Serve(ln, site.Handler())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
