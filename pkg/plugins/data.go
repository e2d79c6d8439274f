package plugins

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-xview/pkg/document"
	"github.com/goliatone/go-xview/pkg/plugin"
)

// DataPlugin exposes an XML data file to programs. The file is named by the
// data.path setting and is reloaded when its modification time changes.
//
//	<data>
//	  <page url="/about"><title>About</title></page>
//	</data>
type DataPlugin struct {
	plugin.Base

	path   string
	logger logr.Logger

	mu      sync.Mutex
	root    *document.Node
	modTime time.Time
}

// Init loads the data file. Without a data.path setting the plugin returns
// empty documents.
func (p *DataPlugin) Init(env plugin.Env) error {
	p.logger = env.Logger.WithName("data")
	p.path = settingPath(env, SettingDataPath)
	if p.path == "" {
		return nil
	}
	_, err := p.document()
	return err
}

// Page returns the page element whose url attribute equals url.
func (p *DataPlugin) Page(url string) *document.Node {
	root := p.current()
	if root == nil || strings.Contains(url, "'") {
		return plugin.Nothing()
	}
	if page := root.First(fmt.Sprintf("/data/page[@url='%s']", url)); page != nil {
		return page
	}
	return plugin.Nothing()
}

// Get returns the first node matching path, or an empty document.
func (p *DataPlugin) Get(path string) *document.Node {
	if node := p.current().First(path); node != nil {
		return node
	}
	return plugin.Nothing()
}

// Select returns every node matching path.
func (p *DataPlugin) Select(path string) []*document.Node {
	return p.current().Select(path)
}

func (p *DataPlugin) current() *document.Node {
	root, err := p.document()
	if err != nil {
		p.logger.Error(err, "data file unavailable", "path", p.path)
		return nil
	}
	return root
}

func (p *DataPlugin) document() (*document.Node, error) {
	if p.path == "" {
		return nil, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := os.Stat(p.path)
	if err != nil {
		return nil, fmt.Errorf("plugins: data file: %w", err)
	}
	if p.root != nil && info.ModTime().Equal(p.modTime) {
		return p.root, nil
	}

	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("plugins: data file: %w", err)
	}
	defer f.Close()
	root, err := document.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("plugins: data file %s: %w", p.path, err)
	}
	p.root, p.modTime = root, info.ModTime()
	p.logger.V(1).Info("data file loaded", "path", p.path)
	return root, nil
}
