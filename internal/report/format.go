package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Write.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// View is a serializable snapshot of a report.
type View struct {
	Hosts    []HostView    `json:"hosts" yaml:"hosts"`
	Ports    []PortView    `json:"open_ports" yaml:"open_ports"`
	Services []ServiceView `json:"services" yaml:"services"`
	Summary  Summary       `json:"summary" yaml:"summary"`
}

// HostView is the serialized form of a Host.
type HostView struct {
	MAC     string   `json:"mac" yaml:"mac"`
	IP      string   `json:"ip" yaml:"ip"`
	Methods []string `json:"methods" yaml:"methods"`
}

// PortView is the serialized form of a Port.
type PortView struct {
	MAC  string `json:"mac" yaml:"mac"`
	IP   string `json:"ip" yaml:"ip"`
	Port uint16 `json:"port" yaml:"port"`
}

// ServiceView is the serialized form of a Service.
type ServiceView struct {
	Kind    string `json:"kind" yaml:"kind"`
	MAC     string `json:"mac" yaml:"mac"`
	Address string `json:"address" yaml:"address"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	URL     string `json:"url" yaml:"url"`
}

// View builds a serializable snapshot of the report.
func (r *ScanReport) View() View {
	v := View{
		Hosts:    make([]HostView, 0, len(r.order)),
		Ports:    make([]PortView, 0, len(r.ports)),
		Services: make([]ServiceView, 0, len(r.services)),
		Summary:  r.Summary(),
	}
	for _, h := range r.Hosts() {
		methods := []string{}
		if h.Flags.Has(FlagARP) {
			methods = append(methods, "arp")
		}
		if h.Flags.Has(FlagICMP) {
			methods = append(methods, "icmp")
		}
		v.Hosts = append(v.Hosts, HostView{MAC: h.MAC.String(), IP: h.IP.String(), Methods: methods})
	}
	for _, p := range r.ports {
		v.Ports = append(v.Ports, PortView{MAC: p.MAC.String(), IP: p.IP.String(), Port: p.Port})
	}
	for _, s := range r.services {
		v.Services = append(v.Services, ServiceView{
			Kind:    s.Kind.String(),
			MAC:     s.MAC.String(),
			Address: s.Addr.String(),
			Path:    s.Path,
			URL:     s.URL(),
		})
	}
	return v
}

// Write renders the report in the named format.
func Write(w io.Writer, r *ScanReport, format string) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatYAML:
		return WriteYAML(w, r)
	case FormatTable, "":
		return WriteTable(w, r)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *ScanReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.View())
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, r *ScanReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.View()); err != nil {
		return err
	}
	return enc.Close()
}

// WriteTable writes the services as a table followed by a one-line summary.
func WriteTable(w io.Writer, r *ScanReport) error {
	table := tablewriter.NewWriter(w)
	table.Header("Kind", "MAC", "Address", "URL")

	for _, s := range r.services {
		if err := table.Append([]string{
			s.Kind.String(),
			s.MAC.String(),
			s.Addr.String(),
			s.URL(),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	sum := r.Summary()
	_, err := fmt.Fprintf(w, "\n%s hosts, %s open ports, %s services\n",
		strconv.Itoa(sum.Hosts), strconv.Itoa(sum.Ports), strconv.Itoa(sum.Services))
	return err
}
