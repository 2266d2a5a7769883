package config

// profile.go reads and writes export profiles: small HCL files that pin the
// identifiers and preview size used for a recurring import, e.g.
//
//	table_name   = "crm.customers"
//	model_name   = "Customer"
//	preview_rows = 100
//	format       = "json"

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Profile holds export overrides. Empty or zero fields leave the
// environment configuration untouched.
type Profile struct {
	TableName   string `hcl:"table_name,optional"`
	ModelName   string `hcl:"model_name,optional"`
	PreviewRows int    `hcl:"preview_rows,optional"`
	Format      string `hcl:"format,optional"`
}

// LoadProfile parses the HCL profile at path.
func LoadProfile(path string) (*Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export profile: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse export profile: %s", diags.Error())
	}

	p := &Profile{}
	if diags := gohcl.DecodeBody(file.Body, nil, p); diags.HasErrors() {
		return nil, fmt.Errorf("decode export profile: %s", diags.Error())
	}
	return p, nil
}

// Apply copies the profile's non-empty settings into cfg.
func (p *Profile) Apply(cfg *Config) {
	if p.TableName != "" {
		cfg.Convert.DefaultTableName = p.TableName
	}
	if p.ModelName != "" {
		cfg.Convert.DefaultModelName = p.ModelName
	}
	if p.PreviewRows > 0 {
		cfg.Convert.PreviewRows = p.PreviewRows
	}
	if p.Format != "" {
		cfg.Convert.DefaultFormat = p.Format
	}
}

// ProfileFrom captures the export settings of cfg.
func ProfileFrom(cfg *Config) *Profile {
	return &Profile{
		TableName:   cfg.Convert.DefaultTableName,
		ModelName:   cfg.Convert.DefaultModelName,
		PreviewRows: cfg.Convert.PreviewRows,
		Format:      cfg.Convert.DefaultFormat,
	}
}

// ExportProfile writes p to path in HCL format. Empty fields are omitted.
func ExportProfile(path string, p *Profile) error {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	if p.TableName != "" {
		root.SetAttributeValue("table_name", cty.StringVal(p.TableName))
	}
	if p.ModelName != "" {
		root.SetAttributeValue("model_name", cty.StringVal(p.ModelName))
	}
	if p.PreviewRows > 0 {
		root.SetAttributeValue("preview_rows", cty.NumberIntVal(int64(p.PreviewRows)))
	}
	if p.Format != "" {
		root.SetAttributeValue("format", cty.StringVal(p.Format))
	}

	if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write export profile: %w", err)
	}
	return nil
}
