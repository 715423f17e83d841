package server

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/workbench"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Lock()
	defer sess.Unlock()
	s.render(w, r, sess, &page{}, http.StatusOK)
}

// stageStatus is the response status of a stage post.
func stageStatus(err error) int {
	if err != nil {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	sess.Lock()
	defer sess.Unlock()

	p := &page{}
	err := s.upload(r, sess)
	if err != nil {
		p.Upload.Err = err.Error()
	} else {
		rows, cols := sess.Data.Shape()
		p.Upload.Notices = []string{fmt.Sprintf("Loaded %s: (%d, %d)", sess.Filename, rows, cols)}
	}
	s.render(w, r, sess, p, stageStatus(err))
}

func (s *Server) upload(r *http.Request, sess *workbench.Session) error {
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return errors.Wrap(err, "read upload")
	}
	defer file.Close()
	_, err = s.wb.Upload(sess, hdr.Filename, file)
	return err
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Lock()
	defer sess.Unlock()

	p := &page{}
	var err error
	if err = r.ParseForm(); err == nil {
		p.CleanResult, err = s.wb.Clean(sess, workbench.CleanOptions{
			DropNARows:     checked(r, "drop_na_rows"),
			DropNAColumns:  checked(r, "drop_na_columns"),
			DropDuplicates: checked(r, "drop_duplicates"),
			DropColumns:    r.PostForm["drop_columns"],
		})
	}
	if err != nil {
		p.Clean.Err = err.Error()
	}
	s.render(w, r, sess, p, stageStatus(err))
}

func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Lock()
	defer sess.Unlock()

	p := &page{}
	opts, err := preprocessOptions(r)
	if err == nil {
		p.PreprocessResult, err = s.wb.Preprocess(sess, opts)
	}
	if err != nil {
		p.Preprocess.Err = err.Error()
	}
	s.render(w, r, sess, p, stageStatus(err))
}

func preprocessOptions(r *http.Request) (workbench.PreprocessOptions, error) {
	if err := r.ParseForm(); err != nil {
		return workbench.PreprocessOptions{}, err
	}
	opts := workbench.PreprocessOptions{
		Balance:   checked(r, "balance"),
		Technique: r.PostForm.Get("technique"),
		PCA:       checked(r, "pca"),
		Target:    r.PostForm.Get("target"),
	}
	if opts.PCA {
		k, err := formInt(r, "components", "Number of PCA components")
		if err != nil {
			return opts, err
		}
		opts.Components = k
	}
	return opts, nil
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Lock()
	defer sess.Unlock()

	p := &page{}
	opts, err := trainOptions(r)
	if err == nil {
		var res *workbench.TrainResult
		if res, err = s.wb.Train(sess, opts); err == nil {
			p.Train.Notices = res.Messages
		}
	}
	if err != nil {
		p.Train.Err = err.Error()
	}
	s.render(w, r, sess, p, stageStatus(err))
}

func trainOptions(r *http.Request) (workbench.TrainOptions, error) {
	if err := r.ParseForm(); err != nil {
		return workbench.TrainOptions{}, err
	}
	opts := workbench.TrainOptions{
		Target:      r.PostForm.Get("target"),
		ProblemType: workbench.ProblemType(r.PostForm.Get("problem_type")),
		Models:      r.PostForm["models"],
		HyperParams: make(map[string]int),
	}
	pct, err := formInt(r, "test_percent", "Test data size (%)")
	if err != nil {
		return opts, err
	}
	opts.TestPercent = pct
	for i, name := range workbench.ModelNames {
		key := "hyper_" + strconv.Itoa(i)
		if r.PostForm.Get(key) == "" {
			continue
		}
		n, err := formInt(r, key, workbench.HyperParamLabel(name))
		if err != nil {
			return opts, err
		}
		opts.HyperParams[name] = n
	}
	return opts, nil
}

func checked(r *http.Request, key string) bool {
	v := r.PostForm.Get(key)
	return v == "on" || v == "true" || v == "1"
}

func formInt(r *http.Request, key, label string) (int, error) {
	v := strings.TrimSpace(r.PostForm.Get(key))
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.NewValidationError(label, "must be an integer", v)
	}
	return n, nil
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Lock()
	defer sess.Unlock()

	if sess.Data == nil {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := writeHeatmap(&buf, sess.Data.Correlation()); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeImage(w, &buf)
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Lock()
	defer sess.Unlock()

	name := chi.URLParam(r, "column")
	if sess.Data == nil {
		http.NotFound(w, r)
		return
	}
	col, err := sess.Data.Column(name)
	if err != nil || col.NUnique() >= CountsLimit {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := writeValueCounts(&buf, name, col.ValueCounts()); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeImage(w, &buf)
}

func writeImage(w http.ResponseWriter, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Lock()
	defer sess.Unlock()

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	file, err := s.wb.Artifact(sess, index)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	_, _ = w.Write(file.Data)
}
