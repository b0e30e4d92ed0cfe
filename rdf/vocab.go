package rdf

// Core W3C namespace IRIs. Equivalence and labeling predicates
// (owl:sameAs, rdfs:label, skos:prefLabel, ...) come from the semstreams
// vocabulary package; the constants here cover the schema-structural terms
// semstreams does not define.
const (
	RDFNamespace    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace   = "http://www.w3.org/2000/01/rdf-schema#"
	OWLNamespace    = "http://www.w3.org/2002/07/owl#"
	XSDNamespace    = "http://www.w3.org/2001/XMLSchema#"
	SKOSNamespace   = "http://www.w3.org/2004/02/skos/core#"
	DCTNamespace    = "http://purl.org/dc/terms/"
	SchemaNamespace = "https://schema.org/"
)

// RDF / RDFS structural terms.
const (
	RdfType     = RDFNamespace + "type"
	RdfProperty = RDFNamespace + "Property"

	RdfsClass         = RDFSNamespace + "Class"
	RdfsSubClassOf    = RDFSNamespace + "subClassOf"
	RdfsSubPropertyOf = RDFSNamespace + "subPropertyOf"
	RdfsDomain        = RDFSNamespace + "domain"
	RdfsRange         = RDFSNamespace + "range"
	RdfsDatatype      = RDFSNamespace + "Datatype"
)

// OWL structural terms.
const (
	OwlClass              = OWLNamespace + "Class"
	OwlObjectProperty     = OWLNamespace + "ObjectProperty"
	OwlDatatypeProperty   = OWLNamespace + "DatatypeProperty"
	OwlAnnotationProperty = OWLNamespace + "AnnotationProperty"
	OwlInverseOf          = OWLNamespace + "inverseOf"
	OwlOntology           = OWLNamespace + "Ontology"
)

// SKOS concept-scheme terms.
const (
	SkosConcept       = SKOSNamespace + "Concept"
	SkosConceptScheme = SKOSNamespace + "ConceptScheme"
	SkosInScheme      = SKOSNamespace + "inScheme"
	SkosBroader       = SKOSNamespace + "broader"
	SkosNarrower      = SKOSNamespace + "narrower"
)
