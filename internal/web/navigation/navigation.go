// Package navigation builds the page title, breadcrumbs and section menu
// handed to the layout template.
package navigation

// Link is a breadcrumb or a menu entry.
type Link struct {
	ID     string
	Title  string
	URL    string
	Active bool
}

// Context represents the navigation context for a page.
type Context struct {
	PageTitle   string
	Active      string
	Breadcrumbs []Link
	Menu        []Link
}

// NewContext creates a navigation context; active names the current menu entry.
func NewContext(pageTitle, active string) *Context {
	return &Context{
		PageTitle:   pageTitle,
		Active:      active,
		Breadcrumbs: make([]Link, 0),
		Menu:        make([]Link, 0),
	}
}

// AddBreadcrumb appends a breadcrumb. The last one added is the active one.
func (c *Context) AddBreadcrumb(title, url string) *Context {
	for i := range c.Breadcrumbs {
		c.Breadcrumbs[i].Active = false
	}

	c.Breadcrumbs = append(c.Breadcrumbs, Link{Title: title, URL: url, Active: true})

	return c
}

// AddMenu appends a menu entry.
func (c *Context) AddMenu(id, title, url string) *Context {
	c.Menu = append(c.Menu, Link{ID: id, Title: title, URL: url, Active: id == c.Active})

	return c
}

// IsActive reports whether id is the current menu entry.
func (c *Context) IsActive(id string) bool {
	return c.Active == id
}
