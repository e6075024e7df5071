package vault

// Selector criteria resolving a clipboard copy target to a record.
//
// Exactly one of the three forms is meaningful: by ID, by service and
// username, or by service alone. A service-alone selector matching more than
// one record fails with AmbiguousMatchError rather than picking silently.
type Selector struct {
	// ID target record ID, takes precedence when set
	ID *uint
	// Service exact service name
	Service string
	// Username exact username, combined with Service when set
	Username *string
}

/*
ByID build a selector targeting one record by ID

	@param id uint - record ID
	@returns the selector
*/
func ByID(id uint) Selector {
	return Selector{ID: &id}
}

/*
ByService build a selector targeting a service name

	@param service string - exact service name
	@returns the selector
*/
func ByService(service string) Selector {
	return Selector{Service: service}
}

/*
ByServiceAndUsername build a selector targeting a (service, username) pair

	@param service string - exact service name
	@param username string - exact username
	@returns the selector
*/
func ByServiceAndUsername(service string, username string) Selector {
	return Selector{Service: service, Username: &username}
}
