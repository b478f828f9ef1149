// Package nav holds the route table of the admin shell and the guard that
// decides which screens a session may reach.
package nav

import (
	"fmt"
	"strings"
)

type Screen string

const (
	ScreenLogin        Screen = "login"
	ScreenAdminProfile Screen = "admin-profile"
	ScreenCategory     Screen = "category"
	ScreenProduct      Screen = "product"
	ScreenTable        Screen = "table"
	ScreenStock        Screen = "stock"
	ScreenOrder        Screen = "order"
	ScreenSingleTable  Screen = "single-table"
	ScreenSingleBill   Screen = "single-bill"
	ScreenNotFound     Screen = "not-found"
)

const (
	PathRoot         = "/"
	PathAdminProfile = "/adminprofile"
	PathCategory     = "/catogery"
	PathProduct      = "/product"
	PathCreateTable  = "/createtabe"
	PathStock        = "/stock"
	PathOrder        = "/order"
)

type Route struct {
	Pattern   string
	Screen    Screen
	Protected bool
}

type Resolution struct {
	Path       string
	Route      Route
	Params     map[string]string
	Redirected bool
}

type MenuEntry struct {
	Name string
	Path string
}

var routes = []Route{
	{Pattern: PathRoot, Screen: ScreenLogin},
	{Pattern: PathAdminProfile, Screen: ScreenAdminProfile, Protected: true},
	{Pattern: PathCategory, Screen: ScreenCategory, Protected: true},
	{Pattern: PathProduct, Screen: ScreenProduct, Protected: true},
	{Pattern: PathCreateTable, Screen: ScreenTable, Protected: true},
	{Pattern: PathStock, Screen: ScreenStock, Protected: true},
	{Pattern: PathOrder, Screen: ScreenOrder, Protected: true},
	{Pattern: "/singletable/:id", Screen: ScreenSingleTable, Protected: true},
	{Pattern: "/singlebill/:id", Screen: ScreenSingleBill, Protected: true},
}

var notFound = Route{Pattern: "*", Screen: ScreenNotFound}

type Guard struct {
	routes []Route
}

func NewGuard() *Guard {
	return &Guard{routes: routes}
}

// Resolve maps path to a route. A protected route reached without an admin
// session resolves to the login screen at "/" with Redirected set.
func (g *Guard) Resolve(path string, admin bool) Resolution {
	clean := Clean(path)
	for _, route := range g.routes {
		params, ok := match(route.Pattern, clean)
		if !ok {
			continue
		}
		if route.Protected && !admin {
			return Resolution{Path: PathRoot, Route: g.routes[0], Redirected: true}
		}
		return Resolution{Path: clean, Route: route, Params: params}
	}
	return Resolution{Path: clean, Route: notFound}
}

func Menu() []MenuEntry {
	return []MenuEntry{
		{Name: "Profile", Path: PathAdminProfile},
		{Name: "Catogery", Path: PathCategory},
		{Name: "Product", Path: PathProduct},
		{Name: "Create Table", Path: PathCreateTable},
		{Name: "Stock", Path: PathStock},
		{Name: "order", Path: PathOrder},
	}
}

func TablePath(tableID string) string {
	return "/singletable/" + tableID
}

func BillPath(billID int) string {
	return fmt.Sprintf("/singlebill/%d", billID)
}

// Clean drops query strings and trailing slashes; the empty path is "/".
func Clean(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(path, "/")
	return path
}

func match(pattern, path string) (map[string]string, bool) {
	if pattern == path {
		return nil, true
	}

	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range want {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if got[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string, 1)
			}
			params[name] = got[i]
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}
