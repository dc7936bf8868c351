// agora/handlers/render.go

package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"agora/config"
	"agora/models"
	"agora/utils"
)

var (
	templates *template.Template
)

// LoadTemplates parses all HTML files from the templates directory.
func LoadTemplates() error {
	funcMap := template.FuncMap{
		"renderBody": utils.RenderBody,
		"stripTags":  utils.StripTags,
		"formatTime": func(t time.Time) string { return t.In(time.Local).Format("2006-01-02 15:04") },
		"formatISO":  func(t time.Time) string { return t.Format(time.RFC3339) },
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"default": func(dflt, val string) string {
			if val == "" {
				return dflt
			}
			return val
		},
		"truncate": func(max int, s string) string {
			runes := []rune(s)
			if len(runes) > max {
				return string(runes[:max]) + "..."
			}
			return s
		},
		"canInteract": models.CanInteract,
		"canModerate": models.CanModerate,
		"canManage":   models.CanManageModerators,
	}
	templateFiles, err := filepath.Glob("templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to find templates: %w", err)
	}
	if len(templateFiles) == 0 {
		return fmt.Errorf("no templates found in templates/")
	}
	t, err := template.New("").Funcs(funcMap).ParseFiles(templateFiles...)
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	templates = t
	return nil
}

// render executes contentTmpl into a buffer and then wraps it in layout.
func render(w http.ResponseWriter, r *http.Request, app App, status int, contentTmpl string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	logger := app.Logger().With("template", contentTmpl)

	account := currentAccount(r)
	data["Account"] = account
	data["NavCategories"] = getNavCategories(app)
	data["AppVersion"] = config.AppVersion
	data["SiteName"] = config.SiteName
	data["CanCreateNews"] = models.CanCreateNews(account)
	data["CanModerate"] = models.CanModerate(account)
	if csrfToken, ok := r.Context().Value(CSRFTokenKey).(string); ok {
		data["csrfToken"] = csrfToken
	}
	if banner := utils.ReadBanner(app.BannerFile()); banner != "" {
		data["Banner"] = banner
	}
	if _, ok := data["FormInput"]; !ok {
		data["FormInput"] = &models.FormInput{}
	}

	contentBuf := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(contentBuf, contentTmpl, data); err != nil {
		logger.Error("Error rendering content template", "error", err)
		http.Error(w, "Failed to render page content", http.StatusInternalServerError)
		return
	}
	data["Content"] = template.HTML(contentBuf.String())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		logger.Error("Error rendering layout template", "error", err)
	}
}

// renderError shows the error page with the given status.
func renderError(w http.ResponseWriter, r *http.Request, app App, status int, message string) {
	render(w, r, app, status, "error.html", map[string]interface{}{
		"Title":      http.StatusText(status),
		"StatusCode": status,
		"Message":    message,
	})
}
