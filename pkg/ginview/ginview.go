// Package ginview renders xview views from gin handlers.
//
//	r := gin.New()
//	r.HTMLRender = ginview.New(engine)
//	r.GET("/", func(c *gin.Context) { c.HTML(http.StatusOK, "Home/index", model) })
//
// HTML builds the full view context from the request (view data, temp data,
// model errors and route values) and should be preferred inside handlers.
package ginview

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ginrender "github.com/gin-gonic/gin/render"

	"github.com/goliatone/go-xview/pkg/render"
)

// Keys under which request-scoped view state is stored on the gin context.
const (
	ViewDataKey    = "xview.viewdata"
	TempDataKey    = "xview.tempdata"
	ModelErrorsKey = "xview.errors"
	ValuesKey      = "xview.values"
	HiddenKey      = "xview.hidden"
)

// Renderer implements gin's HTMLRender over an engine.
type Renderer struct {
	Engine *render.Engine
}

var _ ginrender.HTMLRender = (*Renderer)(nil)

// New returns a Renderer for engine.
func New(engine *render.Engine) *Renderer {
	return &Renderer{Engine: engine}
}

// Instance resolves name ("controller/view", "view" or an explicit program
// path) for gin's c.HTML. data may be a *render.ViewContext or a model.
func (r *Renderer) Instance(name string, data any) ginrender.Render {
	vc, ok := data.(*render.ViewContext)
	if !ok || vc == nil {
		vc = render.NewViewContext(data)
	}
	controller, view := r.split(name)
	if vc.Route.Controller == "" {
		vc.Route.Controller = controller
	}
	return &Instance{
		ctx:        context.Background(),
		engine:     r.Engine,
		controller: vc.Route.Controller,
		name:       view,
		vc:         vc,
	}
}

func (r *Renderer) split(name string) (controller, view string) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "~") || strings.HasPrefix(name, "/") || strings.HasSuffix(name, r.Engine.Extension()) {
		return "", name
	}
	if idx := strings.LastIndex(name, "/"); idx > 0 {
		return name[:idx], name[idx+1:]
	}
	return "", name
}

// Instance is one pending render.
type Instance struct {
	ctx        context.Context
	engine     *render.Engine
	controller string
	name       string
	vc         *render.ViewContext

	out      *render.Output
	rendered bool
	err      error
}

func (i *Instance) execute() (*render.Output, error) {
	if i.rendered {
		return i.out, i.err
	}
	i.rendered = true
	view, err := i.engine.FindView(i.controller, i.name)
	if err != nil {
		i.err = err
		return nil, err
	}
	out, err := view.Execute(i.ctx, i.vc)
	if err != nil {
		i.err = err
		return nil, err
	}
	i.out = &out
	return i.out, nil
}

// Render executes the view and writes the body with its content type.
func (i *Instance) Render(w http.ResponseWriter) error {
	out, err := i.execute()
	if err != nil {
		return err
	}
	body, err := out.Bytes()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", out.ContentType)
	_, err = w.Write(body)
	return err
}

// WriteContentType sets the content type of the rendered view, rendering it
// first when needed.
func (i *Instance) WriteContentType(w http.ResponseWriter) {
	if out, err := i.execute(); err == nil {
		w.Header().Set("Content-Type", out.ContentType)
	}
}

// HTML renders the named view with a view context built from c and writes
// it with code. A missing view answers 404; other failures 500. Errors are
// recorded on the gin context.
func HTML(c *gin.Context, code int, name string, model any) {
	engine, ok := engineFrom(c)
	if !ok {
		_ = c.AbortWithError(http.StatusInternalServerError, errors.New("ginview: no engine configured"))
		return
	}
	renderer := New(engine)
	controller, view := renderer.split(name)
	vc := Context(c, model)
	if controller != "" {
		vc.Route.Controller = controller
	}

	inst := &Instance{ctx: c.Request.Context(), engine: engine, controller: vc.Route.Controller, name: view, vc: vc}
	out, err := inst.execute()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, render.ErrViewNotFound) {
			status = http.StatusNotFound
		}
		_ = c.AbortWithError(status, err)
		return
	}
	body, err := out.Bytes()
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.Data(code, out.ContentType, body)
}

// Context builds a view context from the request: the route parameters
// "controller" and "action", request details and the view state stored with
// the Set helpers.
func Context(c *gin.Context, model any) *render.ViewContext {
	vc := render.NewViewContext(model)
	if data, ok := c.Get(ViewDataKey); ok {
		if d, ok := data.(*render.Data); ok {
			vc.ViewData = d
		}
	}
	if data, ok := c.Get(TempDataKey); ok {
		if d, ok := data.(*render.Data); ok {
			vc.TempData = d
		}
	}
	if state, ok := c.Get(ModelErrorsKey); ok {
		if s, ok := state.(render.ModelState); ok {
			vc.Errors = s
		}
	}
	if values, ok := c.Get(ValuesKey); ok {
		if v, ok := values.(map[string]any); ok {
			vc.Values = v
		}
	}
	if hidden, ok := c.Get(HiddenKey); ok {
		if h, ok := hidden.(map[string]string); ok {
			vc.Hidden = h
		}
	}

	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = strings.Trim(p.Value, "/")
	}
	vc.Route = render.Route{
		Controller: params["controller"],
		Action:     params["action"],
		Params:     params,
	}
	if req := c.Request; req != nil {
		vc.Request = render.RequestInfo{
			Method: req.Method,
			Path:   req.URL.Path,
			Query:  req.URL.Query(),
			Host:   req.Host,
			Header: req.Header,
		}
	}
	return vc
}

// SetViewData stores a view data entry for the current request.
func SetViewData(c *gin.Context, key string, value any) {
	data(c, ViewDataKey).Set(key, value)
}

// SetTempData stores a temp data entry for the current request.
func SetTempData(c *gin.Context, key string, value any) {
	data(c, TempDataKey).Set(key, value)
}

// AddModelError records a validation message for key.
func AddModelError(c *gin.Context, key, message string) {
	state, _ := c.Get(ModelErrorsKey)
	s, ok := state.(render.ModelState)
	if !ok {
		s = render.ModelState{}
		c.Set(ModelErrorsKey, s)
	}
	s.Add(key, message)
}

// SetValues stores the values form fields are pre-populated with.
func SetValues(c *gin.Context, values map[string]any) {
	c.Set(ValuesKey, values)
}

// AddHidden records hidden inputs such as anti-forgery tokens.
func AddHidden(c *gin.Context, fields ...render.HiddenField) {
	existing, _ := c.Get(HiddenKey)
	hidden, ok := existing.(map[string]string)
	if !ok {
		hidden = map[string]string{}
		c.Set(HiddenKey, hidden)
	}
	vc := &render.ViewContext{Hidden: hidden}
	vc.AddHidden(fields...)
}

func data(c *gin.Context, key string) *render.Data {
	if existing, ok := c.Get(key); ok {
		if d, ok := existing.(*render.Data); ok {
			return d
		}
	}
	d := render.NewData()
	c.Set(key, d)
	return d
}

const engineKey = "xview.engine"

// Middleware makes engine available to HTML.
func Middleware(engine *render.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(engineKey, engine)
		c.Next()
	}
}

func engineFrom(c *gin.Context) (*render.Engine, bool) {
	value, ok := c.Get(engineKey)
	if !ok {
		return nil, false
	}
	engine, ok := value.(*render.Engine)
	return engine, ok && engine != nil
}
