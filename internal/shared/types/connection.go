package types

// Connection describes the remote endpoint an external tool is launched for.
// Its fields feed argument templating; ExternalTool names the tool to look up.
type Connection struct {
	Name         string
	Hostname     string
	Port         int
	Username     string
	Password     string
	Domain       string
	Description  string
	MacAddress   string
	UserField    string
	ExternalTool string
}

// HasTool reports whether the connection names an external tool
func (c *Connection) HasTool() bool {
	return c != nil && c.ExternalTool != ""
}
