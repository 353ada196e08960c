package validation

import "strings"

// subnetNewbits splits the network CIDR into four subnets.
const subnetNewbits = 2

// derivedSubnets are filled from the network CIDR, in subnet number order.
var derivedSubnets = []string{FieldSubnetPublicCIDR, FieldSubnetPrivateCIDR}

// Defaults returns the initial form values and toggles: template defaults
// for form fields, and each declared toggle's bool default.
func (e *Engine) Defaults() (Values, Toggles) {
	values := Values{}
	toggles := Toggles{}
	for _, name := range e.Toggles() {
		v := e.declared[name]
		toggles[name] = ToggleOf(v.Default)
	}
	for _, v := range e.vars {
		if _, isToggle := toggles[v.Name]; isToggle || e.collected[v.Name] {
			continue
		}
		if v.Default != nil && v.Name != TagsField {
			values[v.Name] = v.Default
		}
	}
	if network := values.String(FieldCIDR); network != "" {
		e.deriveSubnets(values, "", network)
	}
	return values, toggles
}

// SetValue stores value under name and updates the fields that follow it:
//
//   - cidr fills the subnet CIDRs that are empty or still hold the value
//     derived from the previous cidr;
//   - resource_group_name is mirrored into vnet_resource_group_name while
//     that field is empty or equal to the previous resource group.
func (e *Engine) SetValue(values Values, name string, value any) {
	prev := values.String(name)
	values[name] = value

	next, _ := value.(string)
	next = strings.TrimSpace(next)
	switch name {
	case FieldCIDR:
		e.deriveSubnets(values, prev, next)
	case FieldResourceGroupName:
		if !e.declares(FieldVNetResourceGroupName) {
			return
		}
		if cur := values.String(FieldVNetResourceGroupName); cur == "" || cur == prev {
			values[FieldVNetResourceGroupName] = next
		}
	}
}

func (e *Engine) deriveSubnets(values Values, prevNetwork, network string) {
	for i, field := range derivedSubnets {
		if !e.declares(field) {
			continue
		}
		cur := values.String(field)
		if cur != "" {
			old, err := CIDRSubnet(prevNetwork, subnetNewbits, i)
			if err != nil || cur != old {
				continue
			}
		}
		derived, err := CIDRSubnet(network, subnetNewbits, i)
		if err != nil {
			// Keep a stale derived value out of the form.
			if cur != "" {
				values[field] = ""
			}
			continue
		}
		values[field] = derived
	}
}
