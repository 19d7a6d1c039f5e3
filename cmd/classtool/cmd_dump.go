package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smallrye/jdk-classfile-backport/classfile"
)

func newDumpCmd() *cobra.Command {
	var dumpFormat string
	var showCode bool

	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Dump the class model from a .class file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read class file: %w", err)
			}
			model, err := classfile.Parse(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			switch dumpFormat {
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(dumpModel(model))
			case "line":
				return dumpLines(os.Stdout, model, showCode)
			default:
				return fmt.Errorf("unknown format: %s (expected json or line)", dumpFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&dumpFormat, "format", "f", "line", "output format (json, line)")
	cmd.Flags().BoolVar(&showCode, "code", false, "disassemble method bodies")

	return cmd
}

type memberDump struct {
	Flags      string `json:"flags,omitempty"`
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

type classDump struct {
	Version    string       `json:"version"`
	Flags      string       `json:"flags,omitempty"`
	Name       string       `json:"name"`
	Superclass string       `json:"superclass,omitempty"`
	Interfaces []string     `json:"interfaces,omitempty"`
	Fields     []memberDump `json:"fields,omitempty"`
	Methods    []memberDump `json:"methods,omitempty"`
	Attributes []string     `json:"attributes,omitempty"`
}

func dumpModel(m *classfile.ClassModel) classDump {
	d := classDump{
		Version: fmt.Sprintf("%d.%d", m.Major, m.Minor),
		Flags:   flagNames(m.Flags),
		Name:    m.ThisClass.DisplayName(),
	}
	if m.Superclass != "" {
		d.Superclass = m.Superclass.DisplayName()
	}
	for _, iface := range m.Interfaces {
		d.Interfaces = append(d.Interfaces, iface.DisplayName())
	}
	for _, f := range m.Fields {
		d.Fields = append(d.Fields, memberDump{Flags: flagNames(f.Flags), Name: f.Name, Descriptor: f.Descriptor})
	}
	for _, meth := range m.Methods {
		d.Methods = append(d.Methods, memberDump{Flags: flagNames(meth.Flags), Name: meth.Name, Descriptor: meth.Descriptor})
	}
	for _, a := range m.Attributes {
		d.Attributes = append(d.Attributes, a.Name)
	}
	return d
}

func dumpLines(w *os.File, m *classfile.ClassModel, showCode bool) error {
	fmt.Fprintf(w, "class %s (version %d.%d)\n", m.ThisClass.DisplayName(), m.Major, m.Minor)
	if flags := flagNames(m.Flags); flags != "" {
		fmt.Fprintf(w, "  flags: %s\n", flags)
	}
	if m.Superclass != "" {
		fmt.Fprintf(w, "  extends %s\n", m.Superclass.DisplayName())
	}
	for _, iface := range m.Interfaces {
		fmt.Fprintf(w, "  implements %s\n", iface.DisplayName())
	}
	for _, a := range m.Attributes {
		fmt.Fprintf(w, "  attribute %s\n", a.Name)
	}
	for _, f := range m.Fields {
		fmt.Fprintf(w, "  field %s %s", f.Name, f.Descriptor)
		if flags := flagNames(f.Flags); flags != "" {
			fmt.Fprintf(w, " [%s]", flags)
		}
		fmt.Fprintln(w)
	}
	for _, meth := range m.Methods {
		fmt.Fprintf(w, "  method %s%s", meth.Name, meth.Descriptor)
		if flags := flagNames(meth.Flags); flags != "" {
			fmt.Fprintf(w, " [%s]", flags)
		}
		fmt.Fprintln(w)
		if !showCode {
			continue
		}
		code, err := meth.Code()
		if err != nil {
			return fmt.Errorf("decode code of %s: %w", meth.Name, err)
		}
		if code == nil {
			continue
		}
		fmt.Fprintf(w, "    stack=%d locals=%d\n", code.MaxStack, code.MaxLocals)
		err = code.Instructions(func(in classfile.Instruction) error {
			fmt.Fprintf(w, "    %4d: %s%s\n", in.PC, in.Name(), instructionDetail(in))
			return nil
		})
		if err != nil {
			return fmt.Errorf("disassemble %s: %w", meth.Name, err)
		}
		for _, h := range code.Handlers {
			catch := "any"
			if h.CatchType != "" {
				catch = h.CatchType.DisplayName()
			}
			fmt.Fprintf(w, "    try [%d,%d) -> %d catch %s\n", h.StartPC, h.EndPC, h.HandlerPC, catch)
		}
	}
	return nil
}

// instructionDetail resolves symbolic operands where the opcode family
// has them; anything unresolvable just prints bare.
func instructionDetail(in classfile.Instruction) string {
	switch in.Opcode {
	case classfile.OpGetstatic, classfile.OpPutstatic, classfile.OpGetfield, classfile.OpPutfield:
		ref, err := in.FieldRef()
		if err != nil {
			return ""
		}
		return fmt.Sprintf(" %s.%s %s", ref.Owner.DisplayName(), ref.Name, ref.Descriptor)
	case classfile.OpInvokevirtual, classfile.OpInvokespecial, classfile.OpInvokestatic, classfile.OpInvokeinterface:
		ref, _, err := in.MethodRef()
		if err != nil {
			return ""
		}
		return fmt.Sprintf(" %s.%s%s", ref.Owner.DisplayName(), ref.Name, ref.Descriptor)
	case classfile.OpInvokedynamic:
		site, err := in.InvokeDynamic()
		if err != nil {
			return ""
		}
		return fmt.Sprintf(" %s%s", site.Name, site.Descriptor)
	case classfile.OpNew, classfile.OpAnewarray, classfile.OpCheckcast, classfile.OpInstanceof, classfile.OpMultianewarray:
		class, err := in.ClassOperand()
		if err != nil {
			return ""
		}
		return " " + class.DisplayName()
	case classfile.OpLdc, classfile.OpLdcW, classfile.OpLdc2W:
		v, err := in.Constant()
		if err != nil {
			return ""
		}
		return fmt.Sprintf(" %#v", v)
	}
	return ""
}

func flagNames(f classfile.AccessFlags) string {
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(f.IsPublic(), "public")
	add(f.IsPrivate(), "private")
	add(f.IsProtected(), "protected")
	add(f.IsStatic(), "static")
	add(f.IsFinal(), "final")
	add(f.IsAbstract(), "abstract")
	add(f.IsNative(), "native")
	add(f.IsInterface(), "interface")
	add(f.IsEnum(), "enum")
	add(f.IsAnnotation(), "annotation")
	add(f.IsSynthetic(), "synthetic")
	add(f.IsModule(), "module")
	return strings.Join(names, " ")
}
