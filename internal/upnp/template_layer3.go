package upnp

// layer3Forwarding1Actions is urn:schemas-upnp-org:service:Layer3Forwarding:1
var layer3Forwarding1Actions = actionSet{
	"SetDefaultConnectionService": {
		params: []param{in("defaultConnectionService", "NewDefaultConnectionService", typeString)},
	},
	"GetDefaultConnectionService": {},
}

type layer3Forwarding1 struct{ Binding }

func (t layer3Forwarding1) Actions() map[string]ActionFunc { return t.bind(layer3Forwarding1Actions) }

func init() {
	register(forumServices+"Layer3Forwarding", 1, layer3Forwarding1Actions, func(b Binding) Template { return layer3Forwarding1{b} })
}
