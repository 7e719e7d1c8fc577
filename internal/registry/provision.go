package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"maskd/internal/common/fsutil"
	"maskd/pkg/types"
)

// Provision resolves the descriptor's artifacts to guaranteed-local file
// paths, fetching missing ones when auto-provisioning is enabled. The
// returned descriptor carries absolute paths; the input is not modified.
func (r *Registry) Provision(ctx context.Context, desc types.ModelDescriptor) (types.ModelDescriptor, error) {
	folder, err := r.modelFolder()
	if err != nil {
		return types.ModelDescriptor{}, err
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return types.ModelDescriptor{}, types.Configuration("create model folder %s: %v", folder, err)
	}

	out := desc
	out.Checkpoint, err = r.resolveFile(ctx, folder, desc.Checkpoint, desc.CheckpointURL, "model checkpoint")
	if err != nil {
		return types.ModelDescriptor{}, err
	}
	if desc.Family.RequiresConfigFile() {
		out.ConfigFile, err = r.resolveFile(ctx, folder, desc.ConfigFile, desc.ConfigURL, "model config file")
		if err != nil {
			return types.ModelDescriptor{}, err
		}
	}
	return out, nil
}

// resolveFile locates one required artifact.
//
// Rules (matching the provisioning policy):
//   - A value containing "://" is a direct remote URL; the local name is
//     its basename under the model folder.
//   - Otherwise the value is a filename under the model folder.
//   - Present locally → done. Missing with no URL → ConfigurationError.
//     Missing with URL but autodownload disabled → ConfigurationError
//     naming the policy. Missing with URL and autodownload → fetch;
//     any fetch failure or post-fetch absence → DownloadError.
func (r *Registry) resolveFile(ctx context.Context, folder, nameOrURL, fallbackURL, label string) (string, error) {
	var local, url string
	if strings.Contains(nameOrURL, "://") {
		url = nameOrURL
		local = filepath.Join(folder, filepath.Base(nameOrURL))
	} else {
		url = fallbackURL
		local = filepath.Join(folder, nameOrURL)
	}

	if fsutil.PathExists(local) {
		return local, nil
	}
	if url == "" {
		return "", types.Configuration("%s not found: %s (no remote source configured)", label, local)
	}
	if !r.cfg.Autodownload {
		return "", types.Configuration(
			"%s not found: %s (autodownload disabled; would fetch from %s)", label, local, url)
	}
	if err := r.download(ctx, local, url); err != nil {
		return "", err
	}
	if !fsutil.PathExists(local) {
		return "", types.DownloadError{URL: url, Err: fmt.Errorf("fetched artifact missing after download: %s", local)}
	}
	return local, nil
}

// download fetches url into path atomically.
func (r *Registry) download(ctx context.Context, path, url string) error {
	log.Info().Str("url", url).Str("path", path).Msg("downloading model artifact")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.DownloadError{URL: url, Err: err}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return types.DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.DownloadError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.DownloadError{URL: url, Err: err}
	}
	if err := fsutil.WriteFileAtomic(path, body, 0o644); err != nil {
		return types.DownloadError{URL: url, Err: err}
	}
	log.Debug().Str("path", path).Int("bytes", len(body)).Msg("artifact downloaded")
	return nil
}
