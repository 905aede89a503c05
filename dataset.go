package hdf5

import (
	"fmt"

	"github.com/gridframe/hdf5/internal/core"
	"github.com/gridframe/hdf5/internal/utils"
)

// Dataset is a resolved HDF5 dataset. The describing messages
// (datatype, dataspace, layout, filter pipeline) are parsed at
// resolution time; element data is read on demand.
type Dataset struct {
	file   *File
	path   string
	header *core.ObjectHeader

	dtype    *core.Datatype
	space    *core.Dataspace
	layout   *core.DataLayout
	pipeline *core.FilterPipeline
}

func newDataset(f *File, path string, oh *core.ObjectHeader) (*Dataset, error) {
	d := &Dataset{file: f, path: path, header: oh}
	sb := f.sb

	var err error
	if msg := oh.Find(core.MsgDatatype); msg != nil {
		d.dtype, err = core.ParseDatatype(msg.Data)
		if err != nil {
			return nil, fmt.Errorf("hdf5: dataset %s: %w", path, err)
		}
	}
	if msg := oh.Find(core.MsgDataspace); msg != nil {
		d.space, err = core.ParseDataspace(msg.Data, sb)
		if err != nil {
			return nil, fmt.Errorf("hdf5: dataset %s: %w", path, err)
		}
	}
	if msg := oh.Find(core.MsgDataLayout); msg != nil {
		d.layout, err = core.ParseDataLayout(msg.Data, sb)
		if err != nil {
			return nil, fmt.Errorf("hdf5: dataset %s: %w", path, err)
		}
	}
	if msg := oh.Find(core.MsgFilterPipeline); msg != nil {
		d.pipeline, err = core.ParseFilterPipeline(msg.Data)
		if err != nil {
			return nil, fmt.Errorf("hdf5: dataset %s: %w", path, err)
		}
	}
	if d.dtype == nil || d.space == nil || d.layout == nil {
		return nil, fmt.Errorf("hdf5: dataset %s: %w", path,
			utils.NewFormatError(oh.Address, "dataset header incomplete"))
	}
	return d, nil
}

// Path returns the absolute path this dataset was resolved from.
func (d *Dataset) Path() string {
	return d.path
}

// Shape returns the current dimension sizes. Empty for scalars.
func (d *Dataset) Shape() []uint64 {
	return d.space.Dims
}

// Datatype returns the parsed element type.
func (d *Dataset) Datatype() *core.Datatype {
	return d.dtype
}

// Layout returns the storage layout class.
func (d *Dataset) Layout() core.LayoutClass {
	return d.layout.Class
}

// Filters returns the filter pipeline, in write order. Nil when the
// dataset is unfiltered.
func (d *Dataset) Filters() []core.Filter {
	if d.pipeline == nil {
		return nil
	}
	return d.pipeline.Filters
}

// Attributes decodes the dataset's attributes in header order.
func (d *Dataset) Attributes() ([]core.Attribute, error) {
	return readAttributes(d.file, d.header)
}

// Read reads the whole dataset as a flat row-major []any. There are
// no partial results: a truncated chunk, an unknown filter or an
// undecodable datatype fails the entire read.
func (d *Dataset) Read() ([]any, error) {
	if d.file.closed {
		return nil, ErrClosed
	}
	values, err := core.ReadDatasetData(d.file.r, d.layout, d.space, d.dtype, d.pipeline, d.file.sb)
	if err != nil {
		return nil, fmt.Errorf("hdf5: read %s: %w", d.path, err)
	}
	return values, nil
}

// readAttributes decodes every attribute message of an object header.
func readAttributes(f *File, oh *core.ObjectHeader) ([]core.Attribute, error) {
	msgs := oh.FindAll(core.MsgAttribute)
	attrs := make([]core.Attribute, 0, len(msgs))
	for _, msg := range msgs {
		attr, err := core.ParseAttribute(msg.Data, f.r, f.sb)
		if err != nil {
			return nil, fmt.Errorf("hdf5: attribute: %w", err)
		}
		attrs = append(attrs, *attr)
	}
	return attrs, nil
}
