package output

import (
	"sort"
)

// Digest is the cross-module overview printed at the top of exported reports.
type Digest struct {
	Targets      []string
	Modules      []string
	Findings     int
	Errors       int
	Subdomains   int
	OpenPorts    []int
	Technologies []string
	Breaches     int
	Profiles     []string
}

// Summarize walks reports read back from disk, so finding data is generic JSON.
func Summarize(reports []*Report) Digest {
	var d Digest
	targets := map[string]bool{}
	modules := map[string]bool{}
	ports := map[int]bool{}
	techs := map[string]bool{}

	for _, r := range reports {
		if !targets[r.Target] {
			targets[r.Target] = true
			d.Targets = append(d.Targets, r.Target)
		}
		if !modules[r.Module] {
			modules[r.Module] = true
			d.Modules = append(d.Modules, r.Module)
		}
		for _, f := range r.Findings {
			d.Findings++
			data, _ := f.Data.(map[string]interface{})
			switch f.Type {
			case "error":
				d.Errors++
			case "subdomain_enumeration":
				if n, ok := data["count"].(float64); ok {
					d.Subdomains += int(n)
				}
			case "shodan_host_info":
				if list, ok := data["ports"].([]interface{}); ok {
					for _, p := range list {
						if port, ok := p.(float64); ok {
							ports[int(port)] = true
						}
					}
				}
			case "tech_stack":
				if list, ok := data["technologies"].([]interface{}); ok {
					for _, t := range list {
						if name, ok := t.(string); ok {
							techs[name] = true
						}
					}
				}
			case "breaches_found":
				if n, ok := data["breach_count"].(float64); ok {
					d.Breaches += int(n)
				}
			case "user_profiles":
				if list, ok := f.Data.([]interface{}); ok {
					for _, p := range list {
						if profile, ok := p.(map[string]interface{}); ok {
							if url, ok := profile["url"].(string); ok {
								d.Profiles = append(d.Profiles, url)
							}
						}
					}
				}
			}
		}
	}

	for p := range ports {
		d.OpenPorts = append(d.OpenPorts, p)
	}
	sort.Ints(d.OpenPorts)
	for t := range techs {
		d.Technologies = append(d.Technologies, t)
	}
	sort.Strings(d.Technologies)
	return d
}
