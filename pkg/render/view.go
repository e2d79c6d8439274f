package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/goliatone/go-xview/pkg/document"
	"github.com/goliatone/go-xview/pkg/transform"
)

// Output is the result of rendering a view.
type Output struct {
	Body        string
	ContentType string
	// Chain lists the programs executed, first to last.
	Chain    []string
	RenderID string
	// Encoding is the output encoding the last program declares.
	Encoding string
}

// Bytes encodes the body in the declared output encoding. Characters the
// encoding cannot represent are written as character references.
func (o Output) Bytes() ([]byte, error) {
	if o.Encoding == "" {
		return []byte(o.Body), nil
	}
	enc, err := htmlindex.Get(o.Encoding)
	if err != nil {
		return nil, fmt.Errorf("render: output encoding %q: %w", o.Encoding, err)
	}
	if enc == unicode.UTF8 {
		return []byte(o.Body), nil
	}
	b, err := encoding.HTMLEscapeUnsupported(enc.NewEncoder()).Bytes([]byte(o.Body))
	if err != nil {
		return nil, fmt.Errorf("render: encode output as %s: %w", o.Encoding, err)
	}
	return b, nil
}

// View is a located program ready to render.
type View struct {
	engine  *Engine
	path    string
	partial bool
}

// Path returns the absolute path of the first program.
func (v *View) Path() string { return v.path }

// Partial reports whether the view was located as a partial.
func (v *View) Partial() bool { return v.partial }

// Render executes the view and writes the body to w. It returns the content
// type of the output.
func (v *View) Render(ctx context.Context, vc *ViewContext, w io.Writer) (string, error) {
	out, err := v.Execute(ctx, vc)
	if err != nil {
		return "", err
	}
	body, err := out.Bytes()
	if err != nil {
		return "", err
	}
	if _, err := w.Write(body); err != nil {
		return "", fmt.Errorf("render: write output: %w", err)
	}
	return out.ContentType, nil
}

// Execute runs the view's program and every program its output type names,
// feeding each output to the next as its input document. The content type is
// the last program's media type or the engine default.
func (v *View) Execute(ctx context.Context, vc *ViewContext) (Output, error) {
	return v.execute(ctx, vc, 0)
}

func (v *View) execute(ctx context.Context, vc *ViewContext, depth int) (Output, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if vc == nil {
		vc = NewViewContext(nil)
	}
	e := v.engine
	out := Output{RenderID: uuid.NewString()}
	logger := e.logger.WithValues("render", out.RenderID, "view", v.path)
	start := time.Now()

	err := v.run(ctx, vc, depth, logger, &out)
	e.metrics.observe(time.Since(start), len(out.Chain), err)
	if err != nil {
		logger.V(1).Info("render failed", "chain", out.Chain, "err", err)
		return Output{}, err
	}
	logger.V(1).Info("render complete", "chain", len(out.Chain), "contentType", out.ContentType, "elapsed", time.Since(start))
	return out, nil
}

func (v *View) run(ctx context.Context, vc *ViewContext, depth int, logger logr.Logger, out *Output) error {
	e := v.engine
	args, err := e.arguments(ctx, vc, v, depth, logger)
	if err != nil {
		return err
	}
	bindings := args.Bindings()
	resolver := e.cache.Resolver()

	var (
		input   *document.Node
		program *transform.Program
		body    string
		seen    = make(map[string]struct{})
		path    = v.path
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, repeated := seen[path]; repeated || len(out.Chain) >= e.maxChainDepth {
			return &ChainCycleError{Chain: append(append([]string(nil), out.Chain...), path)}
		}
		seen[path] = struct{}{}
		out.Chain = append(out.Chain, path)

		program, err = e.cache.Get(path)
		if err != nil {
			return err
		}
		body, err = program.Execute(bindings, input)
		if err != nil {
			return err
		}

		next := strings.TrimSpace(program.MediaType())
		if !e.isProgramRef(next) {
			break
		}
		nextPath := resolver.Resolve(next, program.Dir())
		input, err = document.ParseString(body)
		if err != nil {
			return &transform.ExecuteError{
				Path: program.Path(),
				Err:  fmt.Errorf("output is not a document for %s: %w", nextPath, err),
			}
		}
		logger.V(1).Info("chaining program", "from", program.Path(), "to", nextPath)
		path = nextPath
	}

	out.Encoding = program.Output().Encoding
	out.ContentType = strings.TrimSpace(program.MediaType())
	if out.ContentType == "" {
		out.ContentType = e.defaultContentType
	}
	out.Body = e.registry.StripNamespaceArtifacts(body)
	return nil
}

// arguments builds the parameter set for one render in binding order: the
// model, view data, temp data, plugins, the helper and engine extensions.
// Later bindings replace earlier ones with the same name.
func (e *Engine) arguments(ctx context.Context, vc *ViewContext, view *View, depth int, logger logr.Logger) (*Arguments, error) {
	args := NewArguments(logger)

	model, err := e.param(vc.Model)
	if err != nil {
		return nil, fmt.Errorf("render: marshal model: %w", err)
	}
	args.AddParam(ModelParam, model)
	for _, data := range []*Data{vc.ViewData, vc.TempData} {
		if err := e.addData(args, data); err != nil {
			return nil, err
		}
	}

	for _, desc := range e.registry.Descriptors() {
		args.AddExtension(desc.Namespace, desc.Instance)
	}
	args.AddExtension(HelperNamespace, &Helper{
		engine: e,
		ctx:    ctx,
		vc:     vc,
		depth:  depth,
	})
	for _, ext := range e.extensions.snapshot() {
		args.AddExtension(ext.namespace, ext.construct(vc, view))
	}
	return args, nil
}

// addData binds every entry of data with the same projection as the model.
func (e *Engine) addData(args *Arguments, data *Data) error {
	var err error
	data.Range(func(key string, value any) bool {
		var param any
		if param, err = e.param(value); err != nil {
			err = fmt.Errorf("render: marshal %q: %w", key, err)
			return false
		}
		args.AddParam(key, param)
		return true
	})
	return err
}

// param passes scalars and documents through and projects everything else
// into a document. Nil values, typed or not, are omitted.
func (e *Engine) param(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if node, ok := value.(*document.Node); ok {
		if node == nil {
			return nil, nil
		}
		return node, nil
	}
	if document.IsScalar(value) {
		return value, nil
	}
	node, err := e.marshaller.ToDocument(value)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nil
	}
	return node, nil
}
