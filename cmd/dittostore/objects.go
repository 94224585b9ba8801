package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/dittostore/pkg/acl"
	"github.com/marmos91/dittostore/pkg/config"
	"github.com/marmos91/dittostore/pkg/keys"
	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/marmos91/dittostore/pkg/store/object"
	"github.com/spf13/cobra"
)

// emptyProps is the content of a new folder's ".props" sibling.
const emptyProps = "{}"

var (
	putContentType string
	getOutput      string
)

var putCmd = &cobra.Command{
	Use:   "put PATH [FILE]",
	Short: "Write an object from a file or stdin",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := mutation.ParseLocation(args[0])
		if !keys.IsConcrete(loc.Key) {
			return fmt.Errorf("%s: object keys need an extension (use mkdir for folders)", loc)
		}

		in := cmd.InOrStdin()
		if len(args) == 2 {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			in = f
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}

		contentType := putContentType
		if contentType == "" {
			contentType = mime.TypeByExtension(keys.Ext(loc.Key))
		}

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			if err := authorize(svc.ACL, loc, acl.ActionWrite); err != nil {
				return err
			}
			if err := svc.Store.Put(ctx, loc.Path(), data, object.PutOptions{ContentType: contentType}); err != nil {
				return err
			}
			if svc.Index != nil {
				if err := svc.Index.Add(ctx, loc.Path()); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", loc, humanize.IBytes(uint64(len(data))))
			return err
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "Print the content of an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := mutation.ParseLocation(args[0])

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			if err := authorize(svc.ACL, loc, acl.ActionRead); err != nil {
				return err
			}
			body, _, err := svc.Store.Get(ctx, loc.Path())
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()

			return copyOut(cmd.OutOrStdout(), getOutput, body)
		})
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir PATH",
	Short: "Create a folder marker and its properties object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := mutation.ParseLocation(args[0])
		if loc.Key == "" || keys.IsConcrete(loc.Key) || keys.IsProps(loc.Key) {
			return fmt.Errorf("%s: folder names have no extension", loc)
		}

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			if err := authorize(svc.ACL, loc, acl.ActionWrite); err != nil {
				return err
			}

			marker := loc.Path()
			if err := svc.Store.Put(ctx, marker, nil, object.PutOptions{}); err != nil {
				return err
			}
			err := svc.Store.Put(ctx, keys.PropsKey(marker), []byte(emptyProps), object.PutOptions{
				ContentType: "application/json",
			})
			if err != nil {
				return err
			}
			if svc.Index != nil {
				if err := svc.Index.Add(ctx, marker, keys.PropsKey(marker)); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), loc)
			return err
		})
	},
}

func init() {
	putCmd.Flags().StringVar(&putContentType, "content-type", "", "Content type (default: guessed from the extension)")
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "Write to this file instead of stdout")
}

// authorize asks the ACL whether the current user may act on loc.
func authorize(checker acl.Checker, loc mutation.Location, action acl.Action) error {
	if checker.HasPermission(userName, loc.String(), action) {
		return nil
	}
	return &mutation.Error{
		Kind:   mutation.KindForbidden,
		Status: mutation.ErrForbidden.Status,
		Msg:    fmt.Sprintf("%s may not %s %s", userName, action, loc),
	}
}

// copyOut writes r to path, or to w when path is empty.
func copyOut(w io.Writer, path string, r io.Reader) error {
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	_, err := io.Copy(w, r)
	return err
}
