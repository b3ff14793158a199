package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kbukum/artcache/app"
	"github.com/kbukum/artcache/catalog"
	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/repository"
)

type queryOptions struct {
	page      int
	offline   bool
	asJSON    bool
	imageSize string
}

func (o *queryOptions) addFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.page, "page", 1, "page number, starting at 1")
	fs.BoolVar(&o.offline, "offline", false, "answer from the cache only, as if the network were down")
	fs.BoolVar(&o.asJSON, "json", false, "print the page as JSON")
	fs.StringVar(&o.imageSize, "image-size", catalog.DefaultImageSize, "IIIF size segment for image URLs")
}

func (o *queryOptions) validate() error {
	if o.page < 1 {
		return errors.InvalidRequest("--page must be at least 1")
	}
	return nil
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	q := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search artworks by free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := q.validate(); err != nil {
				return err
			}
			query := strings.Join(args, " ")
			return opts.runTask(cmd, func(ctx context.Context, rt *app.Runtime) error {
				if q.offline {
					rt.Monitor.Observe(false)
				}
				return q.print(cmd.OutOrStdout(), rt.Artworks.Search(ctx, query, q.page))
			})
		},
	}
	q.addFlags(cmd.Flags())
	return cmd
}

func newArtworksCmd(opts *globalOptions) *cobra.Command {
	q := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "artworks <artist>",
		Short: "List an artist's works page by page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := q.validate(); err != nil {
				return err
			}
			artist := strings.Join(args, " ")
			return opts.runTask(cmd, func(ctx context.Context, rt *app.Runtime) error {
				if q.offline {
					rt.Monitor.Observe(false)
				}
				res := rt.Artworks.GetArtworks
				if q.page > 1 {
					res = rt.Artworks.LoadMore
				}
				return q.print(cmd.OutOrStdout(), res(ctx, artist, q.page))
			})
		},
	}
	q.addFlags(cmd.Flags())
	return cmd
}

func newDetailsCmd(opts *globalOptions) *cobra.Command {
	var imageSize string
	cmd := &cobra.Command{
		Use:   "details <artwork-id>",
		Short: "Show an artwork seen in a recent search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.InvalidRequest("artwork id must be a number").WithCause(err)
			}
			return opts.runTask(cmd, func(ctx context.Context, rt *app.Runtime) error {
				a, err := rt.Artworks.Details(ctx, id)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%s (#%d)\n", a.DisplayTitle(), a.ID)
				if a.ArtistTitle != nil {
					fmt.Fprintf(w, "Artist: %s\n", *a.ArtistTitle)
				}
				if a.Date != nil {
					fmt.Fprintf(w, "Date:   %s\n", *a.Date)
				}
				if u := a.ImageURL(imageSize); u != "" {
					fmt.Fprintf(w, "Image:  %s\n", u)
				}
				fmt.Fprintf(w, "\n%s\n", a.PlainDescription())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&imageSize, "image-size", catalog.DefaultImageSize, "IIIF size segment for the image URL")
	return cmd
}

// offlineMiss replaces the queued message in one-shot commands. The queue
// lives in memory and is gone when the process exits.
const offlineMiss = "You are offline and nothing is cached for this request. Run it again once the connection returns."

// print writes res to w. A queued request is not an error; a failure
// without data is returned so the process exits non-zero.
func (o *queryOptions) print(w io.Writer, res repository.Result) error {
	shown := res.Presentation()
	if !res.HasData() && shown.Kind == repository.Queued {
		fmt.Fprintln(w, offlineMiss)
		return nil
	}
	if msg := res.Message(); msg != "" && res.HasData() {
		fmt.Fprintln(w, msg)
	}
	if !res.HasData() {
		if res.Err != nil {
			return res.Err
		}
		return errors.Unknown("request failed")
	}

	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Data)
	}
	if res.Data.Empty() {
		fmt.Fprintln(w, "No artworks found.")
		return nil
	}
	for _, a := range res.Data.Data {
		artist := "unknown artist"
		if a.ArtistTitle != nil {
			artist = *a.ArtistTitle
		}
		fmt.Fprintf(w, "%-8d %s (%s)\n", a.ID, a.DisplayTitle(), artist)
		if u := a.ImageURL(o.imageSize); u != "" {
			fmt.Fprintf(w, "         %s\n", u)
		}
	}
	if res.Data.Pagination.HasMore() {
		fmt.Fprintf(w, "More results available: --page %d\n", o.page+1)
	}
	return nil
}
