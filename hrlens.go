// Package hrlens provides an exploratory and inferential statistics
// pipeline for employee HR records: attrition testing, performance-rating
// modeling, and satisfaction-driver analysis.
//
// Usage:
//
//	import "github.com/hrlens-org/hrlens/pipeline"
//
//	p := pipeline.New(
//	    pipeline.WithSimulations(2000),
//	    pipeline.WithSeed(1),
//	)
//	summary, err := p.Run(pipeline.Inputs{
//	    Employees:          employeeCSV,
//	    Performance:        performanceCSV,
//	    EducationLevels:    educationCSV,
//	    SatisfactionLevels: satisfactionCSV,
//	    RatingLevels:       ratingCSV,
//	})
//
// The pipeline loads the two source tables, joins each employee with their
// most recent performance review, resolves coded fields against the lookup
// tables, and then runs a fixed sequence of statistical tests and models,
// printing one human-readable report per analysis. Every analysis is
// independent: a failed fit reports and the run continues.
//
// All computation is local. The pipeline never calls any external service.
package hrlens
