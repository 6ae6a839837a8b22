// Package web implements a stub Course Builder application: course home, development login,
// admin site settings and the GraphQL query page and endpoint.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"time"
)

//go:embed templates static
var content embed.FS

// QueryPagePath is the path of the GraphQL query page.
const QueryPagePath = "/modules/gql/_static/query/index.html"

// QueryEndpointPath is the path of the GraphQL endpoint.
const QueryEndpointPath = "/modules/gql/query"

// xssiPrefix guards json responses against script inclusion.
const xssiPrefix = ")]}'\n"

// defaultQuery is offered by the query page on load.
const defaultQuery = "{\n  allCourses {\n    edges {\n      node {id title}\n    }\n  }\n}\n"

// ServerConfig holds configuration for the web server.
type ServerConfig struct {
	Port        int    // port to listen on
	CourseTitle string // title shown on the course home page
	LoginEmail  string // email prefilled in the login form
}

// Server serves the stub application.
type Server struct {
	cfg      ServerConfig
	settings *Settings
	catalog  *Catalog
	sessions *Sessions
	executor *Executor
	srv      *http.Server
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig, settings *Settings, catalog *Catalog) *Server {
	if cfg.CourseTitle == "" {
		cfg.CourseTitle = "Course Builder"
	}
	return &Server{
		cfg:      cfg,
		settings: settings,
		catalog:  catalog,
		sessions: NewSessions(),
	}
}

// Handler returns the http handler with all routes registered.
func (s *Server) Handler() (http.Handler, error) {
	executor, err := NewExecutor(s.catalog)
	if err != nil {
		return nil, fmt.Errorf("graphql executor: %w", err)
	}
	s.executor = executor

	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/_ah/login", s.handleLogin)
	mux.HandleFunc("/_ah/logout", s.handleLogout)
	mux.HandleFunc("/dashboard", s.requireAdmin(s.handleDashboard))
	mux.HandleFunc("/admin/settings", s.requireAdmin(s.handleSettings))
	mux.HandleFunc("/admin/settings/edit", s.requireAdmin(s.handleSettingEdit))
	mux.HandleFunc(QueryPagePath, s.handleQueryPage)
	mux.HandleFunc(QueryEndpointPath, s.handleQuery)

	staticFS, err := fs.Sub(content, "static")
	if err != nil {
		return nil, fmt.Errorf("static filesystem: %w", err)
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	return mux, nil
}

// Start begins listening for HTTP requests.
// blocks until the server is stopped or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// start shutdown listener
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	// pick up settings edited on disk
	go func() {
		if err := s.settings.Watch(ctx); err != nil {
			log.Printf("[WARN] settings watcher stopped: %v", err)
		}
	}()

	log.Printf("[INFO] stub course builder on :%d", s.cfg.Port)
	err = s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("http server: %w", err)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

// Settings returns the server's settings store.
func (s *Server) Settings() *Settings {
	return s.settings
}

// pageData holds data shared by all page templates.
type pageData struct {
	Title    string
	Course   string
	User     *User
	Path     string // current path, used as login continue target
	Settings []settingRow
	Setting  *settingRow
	Query    string
	Email    string
	Continue string
}

type settingRow struct {
	Name        string
	Description string
	Value       string
	Status      string
	Overridden  bool
	Override    Override
}

// render executes the named page template with the shared layout.
func (s *Server) render(w http.ResponseWriter, page string, data pageData) {
	tmpl, err := template.ParseFS(content, "templates/layout.html", "templates/"+page)
	if err != nil {
		log.Printf("[WARN] parse template %s: %v", page, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data.Course = s.cfg.CourseTitle
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("[WARN] execute template %s: %v", page, err)
		http.Error(w, "template execution error", http.StatusInternalServerError)
	}
}

// handleHome serves the course home page.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, "home.html", pageData{Title: s.cfg.CourseTitle, User: s.sessions.userFromRequest(r), Path: "/"})
}

// handleLogin serves the development login form and logs in on submit.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	cont := safeContinue(r.URL.Query().Get("continue"))

	switch r.Method {
	case http.MethodGet:
		email := s.cfg.LoginEmail
		if email == "" {
			email = "test@example.com"
		}
		s.render(w, "login.html", pageData{Title: "Login", Email: email, Continue: cont, Path: cont})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if c := r.PostForm.Get("continue"); c != "" {
			cont = safeContinue(c)
		}
		email := r.PostForm.Get("email")
		if email == "" {
			http.Error(w, "email required", http.StatusBadRequest)
			return
		}
		user := User{Email: email, Admin: r.PostForm.Get("admin") != ""}
		token := s.sessions.Create(user)
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
		log.Printf("[INFO] login %s, admin=%v", user.Email, user.Admin)
		http.Redirect(w, r, cont, http.StatusFound)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleLogout ends the session and returns to the continue target.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, safeContinue(r.URL.Query().Get("continue")), http.StatusFound)
}

// requireAdmin sends anonymous users to the login form and rejects non-admins.
func (s *Server) requireAdmin(next func(http.ResponseWriter, *http.Request, *User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := s.sessions.userFromRequest(r)
		if user == nil {
			http.Redirect(w, r, "/_ah/login?continue="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		if !user.Admin {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
		next(w, r, user)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user *User) {
	s.render(w, "dashboard.html", pageData{Title: "Dashboard", User: user, Path: r.URL.Path})
}

func (s *Server) rowFor(p Property) settingRow {
	row := settingRow{Name: p.Name, Description: p.Description, Value: pyBool(s.settings.Effective(p.Name)), Status: "default"}
	if o, ok := s.settings.Override(p.Name); ok {
		row.Overridden, row.Override, row.Status = true, o, o.Status
	}
	return row
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, user *User) {
	props := s.settings.Properties()
	rows := make([]settingRow, 0, len(props))
	for _, p := range props {
		rows = append(rows, s.rowFor(p))
	}
	s.render(w, "settings.html", pageData{Title: "Site settings", User: user, Path: r.URL.Path, Settings: rows})
}

func (s *Server) handleSettingEdit(w http.ResponseWriter, r *http.Request, user *User) {
	name := r.URL.Query().Get("name")
	p, ok := s.settings.Property(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		row := s.rowFor(p)
		if !row.Overridden {
			row.Override = Override{Status: StatusDraft, Value: p.Default}
		}
		s.render(w, "setting_edit.html", pageData{Title: "Edit " + name, User: user, Path: r.URL.RequestURI(), Setting: &row})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		o := Override{Status: r.PostForm.Get("status"), Value: r.PostForm.Get("value") != ""}
		if err := s.settings.Set(name, o); err != nil {
			log.Printf("[WARN] save setting %s: %v", name, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[INFO] %s set %s to %v (%s)", user.Email, name, o.Value, o.Status)
		http.Redirect(w, r, "/admin/settings", http.StatusSeeOther)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleQueryPage serves the GraphQL query page.
func (s *Server) handleQueryPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "query.html", pageData{Title: "GraphQL", User: s.sessions.userFromRequest(r), Path: QueryPagePath, Query: defaultQuery})
}

type queryRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// handleQuery runs a GraphQL query given as q/variables params or as a json body.
// answers 404 while the service setting is off.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !s.settings.Effective(ServiceSetting) {
		http.NotFound(w, r)
		return
	}

	var req queryRequest
	switch r.Method {
	case http.MethodGet:
		req.Query = r.URL.Query().Get("q")
		req.OperationName = r.URL.Query().Get("operationName")
		if vars := r.URL.Query().Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				s.writeResult(w, http.StatusBadRequest, GraphQLResult{Errors: []GraphQLError{{Message: "Variables are invalid JSON."}}})
				return
			}
		}
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeResult(w, http.StatusBadRequest, GraphQLResult{Errors: []GraphQLError{{Message: "Body is invalid JSON."}}})
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if req.Query == "" {
		s.writeResult(w, http.StatusBadRequest, GraphQLResult{Errors: []GraphQLError{{Message: "Must provide query string."}}})
		return
	}

	s.writeResult(w, http.StatusOK, s.executor.Execute(req.Query, req.Variables, req.OperationName))
}

func (s *Server) writeResult(w http.ResponseWriter, status int, res GraphQLResult) {
	data, err := json.Marshal(res)
	if err != nil {
		log.Printf("[WARN] failed to encode result: %v", err)
		http.Error(w, "unable to encode result", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xssiPrefix))
	_, _ = w.Write(data)
}

// pyBool formats a setting value the way the admin pages show it.
func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
