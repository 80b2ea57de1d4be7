// Package validator provides composable field validation rules used by the
// auth services for inbound credentials and profile data.
//
//	err := validator.Apply(
//	    validator.ValidEmail("email", email),
//	    validator.StrongPassword("password", pw, cfg),
//	    validator.NotCommonPassword("password", pw),
//	)
package validator
