package sra

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Sternrassler/sra-metadata-client/pkg/table"
	"github.com/antchfx/xmlquery"
)

// Lookups into an EXPERIMENT_PACKAGE, relative to the package element.
const (
	pathPrimaryID         = ".//RUN/IDENTIFIERS/PRIMARY_ID"
	pathSample            = ".//SAMPLE"
	pathLayout            = ".//DESIGN//LIBRARY_LAYOUT/*"
	pathStatistics        = ".//RUN//Statistics"
	pathReads             = "./Read"
	pathOriginalFiles     = ".//RUN//SRAFile[@supertype='Original']"
	pathBioProject        = ".//EXTERNAL_ID[@namespace='BioProject']"
	pathBioSample         = ".//EXTERNAL_ID[@namespace='BioSample']"
	pathTitle             = ".//EXPERIMENT/TITLE"
	pathDesignDescription = ".//EXPERIMENT//DESIGN_DESCRIPTION"
	pathLibraryDescriptor = ".//EXPERIMENT//LIBRARY_DESCRIPTOR/*"
	pathSampleAttributes  = ".//SAMPLE//SAMPLE_ATTRIBUTES/SAMPLE_ATTRIBUTE"
)

// Fixed record fields.
const (
	FieldID            = table.IDField
	FieldAlias         = "alias"
	FieldLayout        = "layout"
	FieldReads         = "nreads"
	FieldOriginalFiles = "original_files"
	FieldBioProject    = "bioproject_number"
	FieldBioSample     = "biosample_number"
	FieldDescription   = "description"
)

// Attribute values that mean "no data" and are left out of records.
var missingAttributeValues = map[string]struct{}{
	"na":            {},
	"not collected": {},
	"n/a":           {},
}

// PrimaryID returns the run accession of a document.
func PrimaryID(d *Document) (string, error) {
	return d.oneText(pathPrimaryID)
}

// Collate flattens a document into a record holding the fixed fields plus
// whatever library descriptor children and sample attributes it carries.
func Collate(d *Document) (*table.Record, error) {
	rec := table.NewRecord()

	id, err := PrimaryID(d)
	if err != nil {
		return nil, err
	}
	rec.Set(FieldID, table.String(id))

	if err := collateRequired(d, rec); err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.ID = id
		}
		return nil, err
	}

	collateLibrary(d, rec)
	collateAttributes(d, rec)

	return rec, nil
}

func collateRequired(d *Document, rec *table.Record) error {
	sample, err := d.one(pathSample)
	if err != nil {
		return err
	}
	if alias, ok := attr(sample, "alias"); ok {
		rec.Set(FieldAlias, table.String(alias))
	} else {
		rec.Set(FieldAlias, table.Null())
	}

	layout, err := d.one(pathLayout)
	if err != nil {
		return err
	}
	rec.Set(FieldLayout, table.String(strings.ToLower(layout.Data)))

	reads, err := readCount(d)
	if err != nil {
		return err
	}
	rec.Set(FieldReads, reads)

	var files []string
	for _, f := range xmlquery.Find(d.root, pathOriginalFiles) {
		if name, ok := attr(f, "filename"); ok {
			files = append(files, name)
		}
	}
	rec.Set(FieldOriginalFiles, table.String(strings.Join(files, ":")))

	bioproject, err := d.oneText(pathBioProject)
	if err != nil {
		return err
	}
	rec.Set(FieldBioProject, table.String(bioproject))

	biosample, err := d.oneText(pathBioSample)
	if err != nil {
		return err
	}
	rec.Set(FieldBioSample, table.String(biosample))

	title, err := d.oneText(pathTitle)
	if err != nil {
		return err
	}
	design, err := d.oneText(pathDesignDescription)
	if err != nil {
		return err
	}
	rec.Set(FieldDescription, table.String(title+": "+design))

	return nil
}

// readCount derives nreads. The declared total is replaced by the number of
// per-read entries with a positive count when there is at least one, since
// some layouts declare reads that carry no spots.
func readCount(d *Document) (table.Value, error) {
	stats := xmlquery.FindOne(d.root, pathStatistics)
	if stats == nil {
		return table.Null(), nil
	}

	declared, ok := attr(stats, "nreads")
	if !ok {
		return table.Null(), &SchemaError{Path: pathStatistics + "/@nreads"}
	}
	total, err := strconv.ParseInt(strings.TrimSpace(declared), 10, 64)
	if err != nil {
		return table.Null(), &SchemaError{Path: pathStatistics + "/@nreads", Reason: err.Error()}
	}

	var nonEmpty int64
	for _, read := range xmlquery.Find(stats, pathReads) {
		raw, ok := attr(read, "count")
		if !ok {
			continue
		}
		count, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return table.Null(), &SchemaError{Path: pathStatistics + "/Read/@count", Reason: err.Error()}
		}
		if count > 0 {
			nonEmpty++
		}
	}
	if nonEmpty > 0 {
		total = nonEmpty
	}

	return table.Int(total), nil
}

func collateLibrary(d *Document, rec *table.Record) {
	for _, el := range xmlquery.Find(d.root, pathLibraryDescriptor) {
		text := ownText(el)
		if strings.TrimSpace(text) == "" {
			continue
		}
		setOptional(rec, strings.ToLower(el.Data), text)
	}
}

func collateAttributes(d *Document, rec *table.Record) {
	for _, sa := range xmlquery.Find(d.root, pathSampleAttributes) {
		tag := xmlquery.FindOne(sa, "TAG")
		value := xmlquery.FindOne(sa, "VALUE")
		if tag == nil || value == nil {
			continue
		}

		key := ownText(tag)
		val := ownText(value)
		if key == "" || val == "" {
			continue
		}
		if _, skip := missingAttributeValues[strings.ToLower(val)]; skip {
			continue
		}
		setOptional(rec, PrettyHeader(key), val)
	}
}

// setOptional sets an optional field. Optional fields never replace the id.
func setOptional(rec *table.Record, name, value string) {
	if name == FieldID {
		return
	}
	rec.Set(name, table.String(value))
}
