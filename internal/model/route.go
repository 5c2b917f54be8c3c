package model

// Route selects which capability answers a message.
type Route string

const (
	RouteCharacterGenerator Route = "character_generator"
	RouteEncounterGenerator Route = "encounter_generator"
	RouteDiceResolver       Route = "dice_resolver"
	RouteLoreKeeper         Route = "lore_keeper"
	RouteGeneralResponse    Route = "general_response"
)

// Routes returns the fixed route enumeration in declaration order.
func Routes() []Route {
	return []Route{
		RouteCharacterGenerator,
		RouteEncounterGenerator,
		RouteDiceResolver,
		RouteLoreKeeper,
		RouteGeneralResponse,
	}
}

// Valid reports whether r belongs to the route enumeration.
func (r Route) Valid() bool {
	for _, known := range Routes() {
		if r == known {
			return true
		}
	}
	return false
}

func (r Route) String() string {
	return string(r)
}
