package log

// Keys shared by every log record so dashboards can filter on them.
const (
	ComponentKey   = "component"
	SessionKey     = "session.id"
	StageKey       = "session.stage"
	ModelNameKey   = "model.name"
	ProblemTypeKey = "model.problem_type"
	RandomSeedKey  = "model.random_seed"
	OperationKey   = "model.operation"

	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"

	DurationMsKey = "duration_ms"
	IterationKey  = "train.iteration"
	LossKey       = "train.loss"
	AccuracyKey   = "eval.accuracy"
	R2ScoreKey    = "eval.r2"
)

// OperationKey values.
const (
	OperationFit      = "fit"
	OperationResample = "fit_resample"
)
