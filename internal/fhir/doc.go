// Package fhir reads patient demographics, active conditions and recent
// observations from a FHIR R4 REST server.
//
// Only the fields needed to build a clinical narrative are decoded. The
// patient read is authoritative: if it fails, FetchPatientBundle fails.
// The condition and observation searches run concurrently afterwards and
// degrade to empty lists on error.
//
//	client := fhir.NewClient(fhir.DefaultBaseURL, 30*time.Second)
//	bundle, err := client.FetchPatientBundle(ctx, "example")
//	if errors.Is(err, fhir.ErrPatientNotFound) {
//	    // unknown patient
//	}
package fhir
