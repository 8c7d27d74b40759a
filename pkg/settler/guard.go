package settler

import (
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

// requireOwner fails unless caller is the configured owner. An unset owner authorizes nobody.
func requireOwner(op string, settings *models.Settings, caller models.Identity) error {
	if settings.Owner.IsZero() {
		return models.NewError(models.CodeUnauthorized, op, "no owner configured")
	}
	if !settings.Owner.Equal(caller) {
		return models.NewError(models.CodeUnauthorized, op, "caller %q is not the owner", caller)
	}
	return nil
}

// requireCreator fails unless caller created the intent
func requireCreator(op string, intent *models.Intent, caller models.Identity) error {
	if !intent.User.Equal(caller) {
		return models.NewError(models.CodeUnauthorized, op, "caller %q did not create intent %d", caller, intent.ID)
	}
	return nil
}

// allowedFrom lists the states each target status may be entered from under strict transitions
var allowedFrom = map[models.Status][]models.Status{
	models.StatusPriced:    {models.StatusCreated},
	models.StatusExecuting: {models.StatusCreated, models.StatusPriced},
	models.StatusCompleted: {models.StatusExecuting},
}

// checkTransition enforces allowedFrom when the settings ask for strict transitions
func checkTransition(op string, settings *models.Settings, intent *models.Intent, to models.Status) error {
	if !settings.StrictTransitions {
		return nil
	}
	for _, from := range allowedFrom[to] {
		if intent.Status == from {
			return nil
		}
	}
	return models.NewError(models.CodeInvalidTransition, op, "intent %d cannot move from %s to %s", intent.ID, intent.Status, to)
}
