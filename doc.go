// Package automl is a browser-driven AutoML workbench for tabular data.
//
// A user uploads a CSV (or XLSX) file and walks it through a fixed sequence of
// stages: summary statistics, visualisation, cleaning, preprocessing, model
// training, evaluation and model download. All state lives in a server-side
// session; each form post runs one stage to completion.
//
// # Layout
//
//   - cmd/automl: the HTTP server binary
//   - workbench: stage orchestration over a session (Upload, Clean,
//     Preprocess, Train, Evaluate, Artifact)
//   - dataframe: a typed, column-oriented table with pandas-style parsing,
//     describe, correlation and cleaning
//   - preprocessing: StandardScaler and OrdinalEncoder
//   - sklearn/...: estimators with a scikit-learn-like Fit/Predict API
//     (linear_model, tree, ensemble, boosting, decomposition, imbalance,
//     model_selection, pipeline)
//   - metrics: classification and regression scores
//   - core/model: estimator interfaces, fitted-state tracking and the
//     gob/zstd model bundle codec
//   - pkg/errors, pkg/log: error types and structured logging shared by
//     every package
//   - internal/config, internal/server, internal/telemetry: configuration,
//     HTTP surface and Prometheus metrics
//
// # Models
//
// Four models are offered, each for classification and regression:
//
//	Logistic/Linear Regression  standardize, then L-BFGS logistic regression or least squares
//	Random Forest               bagged CART trees
//	Gradient Boosting           depth-wise second-order gradient boosted trees
//	Symmetric Boosting          oblivious-tree gradient boosting
//
// # Using the library directly
//
// The estimators can be used without the server:
//
//	rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(200))
//	if err := rf.Fit(XTrain, yTrain); err != nil {
//	    log.Fatal(err)
//	}
//	pred, err := rf.Predict(XTest)
//
// A downloaded model is restored with model.LoadModelFromReader:
//
//	f, _ := os.Open("Random Forest_model.gob")
//	bundle, err := model.LoadModelFromReader(f)
//	pred, err := bundle.Estimator.Predict(X)
//
// Feature columns must be ordinal-encoded the same way as during training;
// bundle.Features lists them in order.
package automl
