package modules

import "github.com/corrosiverage/corrosive/core"

// All returns every reconnaissance module in menu order.
func All() []core.Module {
	return []core.Module{
		NewDomainRecon(),
		NewIPRecon(),
		NewEmailRecon(),
		NewUsernameRecon(),
		NewBreachRecon(),
		NewCompanyRecon(),
		NewMetadataRecon(),
		NewDorkRecon(),
		NewPhoneRecon(),
	}
}

// Register adds every module to e.
func Register(e *core.Engine) {
	for _, m := range All() {
		e.RegisterModule(m)
	}
}
