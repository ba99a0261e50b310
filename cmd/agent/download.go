package agent

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/devmirror/cmd/util"
	"github.com/sidkik/devmirror/pkg/config"
	"github.com/sidkik/devmirror/pkg/errors"
)

// Mocked for unit testing.
var (
	fs                  = afero.NewOsFs()
	getWorkingDirectory = os.Getwd
)

type downloadOptions struct {
	goos, arch string
	yes        bool
}

// New creates a new `agent` command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage the local devmirror agent",
	}

	var opts downloadOptions
	download := &cobra.Command{
		Use:   "download",
		Short: "Download the newest agent package published by the build server",
		Long: "Download the newest agent package published by the build server for\n" +
			"this platform, and extract it in the current working directory.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runDownload(context.Background(), opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	download.Flags().StringVar(&opts.goos, "os", runtime.GOOS, "The operating system to download the agent for.")
	download.Flags().StringVar(&opts.arch, "arch", runtime.GOARCH, "The architecture to download the agent for.")
	download.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Don't prompt for confirmation.")
	cmd.AddCommand(download)
	return cmd
}

func runDownload(ctx context.Context, opts downloadOptions) error {
	svc, err := util.NewService()
	if err != nil {
		return err
	}

	pp := util.NewProgressPrinter(os.Stdout, "Checking for agent packages")
	go pp.Run()
	info, err := svc.Server().GetInfo(ctx)
	pp.Stop()
	if err != nil {
		return errors.WithContext(err, "get agent packages")
	}

	pkg, ok := config.LatestAgentPackage(info.Packages, opts.goos, opts.arch)
	if !ok {
		return errors.NewFriendlyError("The build server doesn't provide an agent for %s/%s.",
			opts.goos, opts.arch)
	}

	fmt.Printf("The newest agent for %s/%s is at version: %s\n", pkg.OS, pkg.Arch, pkg.Version)
	if !opts.yes {
		doDownload, err := util.PromptYesOrNo("Would you like to download it?")
		if err != nil {
			return errors.WithContext(err, "prompt")
		}
		if !doDownload {
			return nil
		}
	}

	pp = util.NewProgressPrinter(os.Stdout, fmt.Sprintf("Downloading agent %s", pkg.Version))
	go pp.Run()
	dir, err := downloadAgent(ctx, pkg)
	pp.Stop()
	if err != nil {
		return errors.WithContext(err, "download agent")
	}

	fmt.Printf("The agent has been extracted to %s.\n"+
		"Follow the instructions of the package to install and start it.\n", dir)
	return nil
}

// downloadAgent downloads the agent package and extracts it into a new
// directory in the current working directory. It returns the path of that
// directory.
func downloadAgent(ctx context.Context, pkg config.AgentPackage) (string, error) {
	req, err := http.NewRequest(http.MethodGet, pkg.URL, nil)
	if err != nil {
		return "", errors.WithContext(err, "new request")
	}

	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return "", errors.WithContext(err, "get")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New("server responded with %s", resp.Status)
	}

	ctype := resp.Header.Get("Content-Type")
	if !(ctype == "application/x-gzip" || ctype == "application/gzip") {
		return "", errors.New("incorrect content-type: %s", ctype)
	}

	wd, err := getWorkingDirectory()
	if err != nil {
		return "", errors.WithContext(err, "get working dir")
	}

	dir := filepath.Join(wd, fmt.Sprintf("devmirror-agent-%s", pkg.Version))
	if err := extractPackage(resp.Body, dir); err != nil {
		return "", errors.WithContext(err, "extract package")
	}
	return dir, nil
}

// extractPackage takes a .tar.gz Reader, and extracts its regular files
// into `dir`.
func extractPackage(src io.Reader, dir string) error {
	gzr, err := gzip.NewReader(src)
	if err != nil {
		return errors.WithContext(err, "new gzip reader")
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	extracted := 0
	for {
		header, err := tr.Next()
		switch {
		case err == io.EOF:
			if extracted == 0 {
				return errors.New("empty package")
			}
			return nil
		case err != nil:
			return errors.WithContext(err, "read tar header")
		case header.Typeflag != tar.TypeReg:
			continue
		}

		// Cleaning the name as an absolute path drops any leading `..`.
		name := path.Clean("/" + header.Name)[1:]
		if name == "" {
			return errors.New("invalid file name in package: %q", header.Name)
		}

		dst := filepath.Join(dir, filepath.FromSlash(name))
		if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return errors.WithContext(err, "create directory")
		}
		if err := writeFile(dst, os.FileMode(header.Mode), tr); err != nil {
			return errors.WithContext(err, fmt.Sprintf("write %s", name))
		}
		extracted++
	}
}

func writeFile(dst string, mode os.FileMode, src io.Reader) error {
	file, err := fs.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.WithContext(err, "create path")
	}
	defer file.Close()

	if _, err := io.Copy(file, src); err != nil {
		return errors.WithContext(err, "io copy")
	}
	return nil
}
