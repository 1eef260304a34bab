// Command vsfsutil is the process-level entry point for a vsfs image: it
// creates or loads an image and hands it to the engine, but does not
// itself implement the interactive shell (ls, cd, mkdir, ...) that drives
// it — that's an external collaborator per spec.md §1/§6.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/vsfs"
	"github.com/dargueta/vsfs/clock"
	"github.com/dargueta/vsfs/image"
)

func main() {
	app := &cli.App{
		Name:  "vsfsutil",
		Usage: "create or open a vsfs image",
		Commands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "create a fresh empty image and save it to PATH on exit",
				ArgsUsage: "PATH",
				Action:    newImage,
			},
			{
				Name:      "open",
				Usage:     "load an image from PATH and save it back on exit",
				ArgsUsage: "PATH",
				Action:    openImage,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("vsfsutil: %s", err.Error())
	}
}

func newImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("new requires a PATH argument", 2)
	}

	fs := vsfs.New(clock.System{})

	if err := saveImage(fs, path); err != nil {
		return cli.Exit(fmt.Sprintf("could not save image: %s", err), 1)
	}
	return nil
}

func openImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("open requires a PATH argument", 2)
	}

	fs, err := loadImage(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("could not load image: %s", err), 1)
	}

	if err := saveImage(fs, path); err != nil {
		return cli.Exit(fmt.Sprintf("could not save image: %s", err), 1)
	}
	return nil
}

func loadImage(path string) (*vsfs.FileSystem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img := image.New()
	if err := img.Import(f); err != nil {
		return nil, err
	}
	return vsfs.Open(img, clock.System{}), nil
}

func saveImage(fs *vsfs.FileSystem, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return fs.Image().Export(f)
}
