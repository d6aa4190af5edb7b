// Package dockerfile splices JAR download steps into the image build
// file from per-JAR manifest documents, so adding a driver to the
// server image is a JSON file, not a Dockerfile edit.
package dockerfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

// Marker is the line additions are inserted above. When absent, the
// fallback insertion point is the "USER 1000" privilege drop.
const Marker = "# NEW JARS WILL BE ADDED AUTOMATICALLY ABOVE THIS LINE"

const defaultInstallPath = "/opt/nifi/nifi-current/lib/"

// JarManifest describes one JAR to bake into the image.
type JarManifest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	InstallPath string `json:"install_path"`
	Description string `json:"description"`
}

// ScanManifests reads every *.json manifest under dir. Unparseable or
// nameless manifests are logged and skipped; a missing directory
// yields an empty list.
func ScanManifests(dir string, logger *logging.Logger) ([]JarManifest, error) {
	if logger == nil {
		logger = logging.Default()
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.Warn("jars folder not found", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan manifests %s: %w", dir, err)
	}

	var jars []JarManifest
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read manifest %s: %w", path, err)
		}

		var m JarManifest
		if err := json.Unmarshal(data, &m); err != nil {
			logger.Warn("skipping unparseable manifest", "file", path, "error", err.Error())
			continue
		}
		if m.Name == "" {
			logger.Warn("skipping manifest without a name", "file", path)
			continue
		}
		if m.InstallPath == "" {
			m.InstallPath = defaultInstallPath
		}
		jars = append(jars, m)
	}

	// Directory order is filesystem-dependent; sort for a stable file.
	sort.Slice(jars, func(i, j int) bool { return jars[i].Name < jars[j].Name })
	return jars, nil
}

// renderAdditions builds the RUN blocks for the given manifests.
func renderAdditions(jars []JarManifest) string {
	var b strings.Builder
	for i, jar := range jars {
		if i > 0 {
			b.WriteString("\n")
		}
		description := jar.Description
		if description == "" {
			description = jar.Name
		}
		fullPath := strings.TrimRight(jar.InstallPath, "/") + "/" + jar.Name

		fmt.Fprintf(&b, "\n# Download %s\n", description)
		fmt.Fprintf(&b, "RUN curl -L %q \\\n", jar.URL)
		fmt.Fprintf(&b, "        -o %s && \\\n", fullPath)
		fmt.Fprintf(&b, "        chown 1000:1000 %s\n", fullPath)
	}
	return b.String()
}

// Patch inserts the download steps into the Dockerfile content: above
// the marker when present, otherwise before the privilege drop,
// otherwise appended.
func Patch(content string, jars []JarManifest) string {
	if len(jars) == 0 {
		return content
	}
	additions := renderAdditions(jars)

	if strings.Contains(content, Marker) {
		return strings.Replace(content, Marker, additions+"\n"+Marker, 1)
	}

	if idx := strings.Index(content, "USER 1000"); idx >= 0 {
		lineStart := strings.LastIndex(content[:idx], "\n") + 1
		return content[:lineStart] + additions + "\n" + content[lineStart:]
	}

	return content + "\n" + additions
}

// PatchFile applies the manifests under jarsDir to the Dockerfile at
// path, returning how many JARs were spliced in.
func PatchFile(path, jarsDir string, logger *logging.Logger) (int, error) {
	if logger == nil {
		logger = logging.Default()
	}

	jars, err := ScanManifests(jarsDir, logger)
	if err != nil {
		return 0, err
	}
	if len(jars) == 0 {
		logger.Info("no jar manifests found", "dir", jarsDir)
		return 0, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read dockerfile %s: %w", path, err)
	}

	patched := Patch(string(content), jars)
	if err := os.WriteFile(path, []byte(patched), 0o644); err != nil {
		return 0, fmt.Errorf("write dockerfile %s: %w", path, err)
	}

	logger.Info("dockerfile updated", "path", path, "jars", len(jars))
	return len(jars), nil
}
